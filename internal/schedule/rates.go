package schedule

import (
	"sort"

	goerrors "github.com/TudorHulban/go-errors"

	"planline/internal/domain"
)

// Rates maps a worker role to its hourly cost. The role set is closed: only
// roles present here contribute to task cost.
type Rates map[string]float64

func DefaultRates() Rates {
	return Rates{
		"projectManager": 150,
		"fullStackDev1":  125,
		"fullStackDev2":  125,
		"cloudDevops":    140,
		"dataEngineer":   135,
	}
}

// Roles returns the role names in sorted order.
func (r Rates) Roles() []string {
	roles := make([]string, 0, len(r))
	for role := range r {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func (r Rates) Validate() error {
	for role, rate := range r {
		if role == "" {
			return goerrors.ErrValidation{
				Caller: "Validate - Rates",
				Issue: goerrors.ErrNilInput{
					InputName: "role",
				},
			}
		}
		if rate < 0 {
			return goerrors.ErrValidation{
				Caller: "Validate - Rates",
				Issue: goerrors.ErrNegativeInput{
					InputName: role,
				},
			}
		}
	}
	return nil
}

// TaskCost sums hours x rate over every role in the table. Roles the task
// does not allocate contribute zero. Cost does not depend on the scenario.
func TaskCost(task domain.Task, rates Rates) float64 {
	var cost float64
	for _, role := range rates.Roles() {
		cost += task.Hours(role) * rates[role]
	}
	return cost
}

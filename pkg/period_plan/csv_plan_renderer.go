package period_plan

import (
	"bytes"
	"encoding/csv"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type CsvPlanRenderer struct {
}

func NewCsvPlanRenderer() *CsvPlanRenderer {
	return &CsvPlanRenderer{}
}

// RenderPlan writes one row per week bucket followed by the monthly totals.
func (c *CsvPlanRenderer) RenderPlan(plan MonthlyPlan) (string, error) {
	data := make([][]string, 0, len(plan.Weeks)+2)
	data = append(data, []string{"Week", "Dates", "Planned", "Logged", "Variance"})
	for _, week := range plan.Weeks {
		data = append(data, []string{
			strconv.Itoa(week.WeekNumber),
			week.Label,
			hoursToString(week.Planned),
			hoursToString(week.Logged),
			hoursToString(week.Variance),
		})
	}
	data = append(data, []string{
		"Total",
		plan.Month.Format("January 2006"),
		hoursToString(plan.TotalPlanned),
		hoursToString(plan.TotalLogged),
		hoursToString(plan.TotalVariance),
	})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

func hoursToString(hours float64) string {
	return strconv.FormatFloat(hours, 'f', 2, 64)
}

package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"resource-planner/conflicts"
	"resource-planner/forecast"
	"resource-planner/models"
)

// FormatConflictsText lists conflicts one per line under a severity summary.
func FormatConflictsText(cs []models.Conflict) string {
	var sb strings.Builder
	s := conflicts.Summarize(cs)

	counts := make([]string, 0, len(models.Severities))
	for _, sev := range models.Severities {
		counts = append(counts, fmt.Sprintf("%s=%d", sev, s.BySeverity[sev]))
	}
	sb.WriteString(fmt.Sprintf("conflicts=%d employees=%d ; %s\n", s.Total, s.Employees, strings.Join(counts, " ")))

	for _, c := range cs {
		line := conflicts.String(c)
		if c.ScenarioID != "" {
			line = "[" + c.ScenarioID + "] " + line
		}
		sb.WriteString(line)
		if c.ExcessWeeklyHours > 0 {
			sb.WriteString(fmt.Sprintf(" excess=%.1fh/week", c.ExcessWeeklyHours))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func FormatConflictsCSV(cs []models.Conflict) string {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{
			c.ScenarioID,
			c.EmployeeID,
			day(c.PeriodStart),
			day(c.PeriodEnd),
			num(c.TotalAllocationPercentage),
			string(c.Severity),
			num(c.ExcessWeeklyHours),
			strings.Join(c.ContributingAllocationIDs, ";"),
		})
	}
	return writeCSV([]string{
		"Scenario", "Employee", "Period Start", "Period End", "Peak Percentage",
		"Severity", "Excess Weekly Hours", "Contributing Allocations",
	}, rows)
}

// FormatForecastText prints buckets grouped by month with a total line and a
// warning for months that need hires.
func FormatForecastText(buckets []models.ForecastBucket) string {
	if len(buckets) == 0 {
		return "no demand in forecast window\n"
	}

	var sb strings.Builder
	byPeriod := make(map[string][]models.ForecastBucket)
	for _, b := range buckets {
		key := b.Period.Format("2006-01")
		byPeriod[key] = append(byPeriod[key], b)
	}

	for _, total := range forecast.Totals(buckets) {
		key := total.Period.Format("2006-01")
		sb.WriteString(fmt.Sprintf("%s : demand=%.1f supply=%.1f gap=%.1f\n",
			key, total.DemandHours, total.SupplyHours, total.GapHours))
		for _, b := range byPeriod[key] {
			sb.WriteString(fmt.Sprintf("  %s demand=%.1f (scenario=%.1f, pipeline=%.1f) supply=%.1f gap=%.1f util=%.0f%% confidence=%.0f\n",
				skill(b.SkillCategory, b.ExperienceLevel), b.DemandHours, b.ScenarioDemandHours, b.PipelineDemandHours,
				b.SupplyHours, b.GapHours, b.UtilizationRate*100, b.ConfidenceScore))
		}
		if total.HiringNeeded > 0 {
			sb.WriteString(fmt.Sprintf("  ⚠️  HIRING NEEDED: %d FTE\n", total.HiringNeeded))
		}
	}
	return sb.String()
}

func FormatForecastCSV(buckets []models.ForecastBucket) string {
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{
			b.Period.Format("2006-01"),
			b.SkillCategory,
			string(b.ExperienceLevel),
			num(b.DemandHours),
			num(b.ScenarioDemandHours),
			num(b.PipelineDemandHours),
			num(b.SupplyHours),
			num(b.GapHours),
			num(b.UtilizationRate),
			strconv.Itoa(b.HiringRecommendation),
			num(b.ConfidenceScore),
		})
	}
	return writeCSV([]string{
		"Period", "Skill", "Level", "Demand Hours", "Scenario Demand", "Pipeline Demand",
		"Supply Hours", "Gap Hours", "Utilization", "Hires", "Confidence",
	}, rows)
}

// FormatComparisonText summarizes a scenario comparison. Diffs read B - A.
func FormatComparisonText(c *models.ScenarioComparison) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s vs %s\n", c.ScenarioA, c.ScenarioB))
	sb.WriteString(fmt.Sprintf("cost        : a=%.2f b=%.2f diff=%+.2f (%+.1f%%)\n",
		c.TotalCost.A, c.TotalCost.B, c.TotalCost.Diff, c.TotalCost.PctChange))
	sb.WriteString(fmt.Sprintf("utilization : a=%.1f%% b=%.1f%% diff=%+.1f\n",
		c.ResourceUtilization.A, c.ResourceUtilization.B, c.ResourceUtilization.Diff))

	sb.WriteString("skill gaps  :\n")
	if len(c.SkillGaps.Comparison) == 0 {
		sb.WriteString("  none\n")
	}
	for _, d := range c.SkillGaps.Comparison {
		sb.WriteString(fmt.Sprintf("  %s a=%.1f b=%.1f improvement=%+.1f",
			skill(d.SkillCategory, d.ExperienceLevel), d.GapA, d.GapB, d.Improvement))
		if d.MissingIn != "" {
			sb.WriteString(" (missing in " + d.MissingIn + ")")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("timeline conflicts: %d\n", len(c.TimelineConflicts)))
	for _, tc := range c.TimelineConflicts {
		sb.WriteString("  [" + tc.ScenarioID + "] " + conflicts.String(tc) + "\n")
	}
	return sb.String()
}

// FormatComparisonCSV writes one metric per row.
func FormatComparisonCSV(c *models.ScenarioComparison) string {
	rows := [][]string{
		{"total_cost", "", num(c.TotalCost.A), num(c.TotalCost.B), num(c.TotalCost.Diff), ""},
		{"cost_pct_change", "", "", "", num(c.TotalCost.PctChange), ""},
		{"utilization", "", num(c.ResourceUtilization.A), num(c.ResourceUtilization.B), num(c.ResourceUtilization.Diff), ""},
	}
	for _, d := range c.SkillGaps.Comparison {
		rows = append(rows, []string{
			"skill_gap", skill(d.SkillCategory, d.ExperienceLevel),
			num(d.GapA), num(d.GapB), num(d.Improvement), d.MissingIn,
		})
	}
	rows = append(rows, []string{"timeline_conflicts", "", "", "", strconv.Itoa(len(c.TimelineConflicts)), ""})
	return writeCSV([]string{"Metric", "Key", c.ScenarioA, c.ScenarioB, "Diff", "Missing In"}, rows)
}

// FormatCriticalPathText prints the schedule in topological order.
func FormatCriticalPathText(r *models.CriticalPathAnalysis) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("project duration: %d days\n", r.ProjectDuration))

	sb.WriteString("critical paths:\n")
	if len(r.CriticalPaths) == 0 {
		sb.WriteString("  none\n")
	}
	for _, p := range r.CriticalPaths {
		sb.WriteString("  " + strings.Join(p, " -> ") + "\n")
	}
	if r.PathsTruncated {
		sb.WriteString(fmt.Sprintf("  ... more critical paths not listed (showing first %d)\n", len(r.CriticalPaths)))
	}

	sb.WriteString("tasks:\n")
	for _, id := range r.TopoOrder {
		ts := r.Tasks[id]
		sb.WriteString(fmt.Sprintf("  %s duration=%d ES=%d EF=%d LS=%d LF=%d slack=%d wave=%d",
			id, ts.DurationDays, ts.ES, ts.EF, ts.LS, ts.LF, ts.Slack, ts.Wave))
		if ts.IsCritical {
			sb.WriteString(" *")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("waves:\n")
	for _, w := range r.Waves {
		marker := ""
		if w.IsCritical {
			marker = " (critical)"
		}
		sb.WriteString(fmt.Sprintf("  %d: %s%s\n", w.Index, strings.Join(w.TaskIDs, ", "), marker))
	}
	return sb.String()
}

func FormatCriticalPathCSV(r *models.CriticalPathAnalysis) string {
	rows := make([][]string, 0, len(r.TopoOrder))
	for _, id := range r.TopoOrder {
		ts := r.Tasks[id]
		rows = append(rows, []string{
			id,
			strconv.Itoa(ts.DurationDays),
			strconv.Itoa(ts.ES),
			strconv.Itoa(ts.EF),
			strconv.Itoa(ts.LS),
			strconv.Itoa(ts.LF),
			strconv.Itoa(ts.Slack),
			strconv.FormatBool(ts.IsCritical),
			strconv.Itoa(ts.Wave),
		})
	}
	return writeCSV([]string{"Task", "Duration", "ES", "EF", "LS", "LF", "Slack", "Critical", "Wave"}, rows)
}

// FormatPlanText lists candidate allocations and unmet requirements.
func FormatPlanText(p *models.CandidatePlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("scenario %s : candidates=%d unmet=%d\n", p.ScenarioID, len(p.Allocations), len(p.Unmet)))

	for _, a := range p.Allocations {
		role := ""
		if a.Skill != nil {
			role = skill(a.Skill.Category, a.Skill.Level)
		}
		end := "open"
		if a.EndDate != nil {
			end = day(*a.EndDate)
		}
		sb.WriteString(fmt.Sprintf("  %s -> %s %s %.1f%% %s..%s %s confidence=%d\n",
			a.EmployeeID, a.SubjectID, role, a.Percentage, day(a.StartDate), end, a.Type, a.ConfidenceLevel))
	}

	if len(p.Unmet) > 0 {
		sb.WriteString("  ⚠️  UNMET DEMAND:\n")
		for _, u := range p.Unmet {
			sb.WriteString(fmt.Sprintf("    • %s [Priority %d] %s: Requested=%.1f, Allocated=%.1f, Unmet=%.1f h/week\n",
				u.DealID, u.Priority, skill(u.Skill.Category, u.Skill.Level),
				u.RequestedHours, u.AllocatedHours, u.UnmetHours))
		}
	}
	return sb.String()
}

func FormatPlanCSV(p *models.CandidatePlan) string {
	rows := make([][]string, 0, len(p.Allocations)+len(p.Unmet))
	for _, a := range p.Allocations {
		role := ""
		if a.Skill != nil {
			role = skill(a.Skill.Category, a.Skill.Level)
		}
		end := ""
		if a.EndDate != nil {
			end = day(*a.EndDate)
		}
		rows = append(rows, []string{
			"allocation", a.ID, a.EmployeeID, a.SubjectID, role, num(a.Percentage),
			day(a.StartDate), end, string(a.Type), strconv.Itoa(a.ConfidenceLevel), "",
		})
	}
	for _, u := range p.Unmet {
		rows = append(rows, []string{
			"unmet", "", "", u.DealID, skill(u.Skill.Category, u.Skill.Level), "",
			"", "", "", strconv.Itoa(u.Priority), num(u.UnmetHours),
		})
	}
	return writeCSV([]string{
		"Kind", "ID", "Employee", "Subject", "Skill", "Percentage",
		"Start", "End", "Type", "Confidence/Priority", "Unmet Hours",
	}, rows)
}

func FormatRunsText(runs []models.RunSummary) string {
	if len(runs) == 0 {
		return "no runs recorded\n"
	}
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s %s %-13s %-9s records=%d conflicts=%d took=%s",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Command, r.Status, r.Records, r.Conflicts, r.Duration))
		if len(r.FailedEmployees) > 0 {
			sb.WriteString(" failed=" + strings.Join(r.FailedEmployees, ","))
		}
		if r.Error != "" {
			sb.WriteString(" error=" + strconv.Quote(r.Error))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func FormatRunsCSV(runs []models.RunSummary) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID, r.Command, r.ScenarioID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			r.Duration.String(), r.Status, strconv.Itoa(r.Records), strconv.Itoa(r.Conflicts),
			strings.Join(r.FailedEmployees, ";"), r.Error,
		})
	}
	return writeCSV([]string{
		"ID", "Command", "Scenario", "Started", "Duration", "Status",
		"Records", "Conflicts", "Failed Employees", "Error",
	}, rows)
}

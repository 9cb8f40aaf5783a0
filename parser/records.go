package parser

import (
	"fmt"
	"io"
	"strings"

	"resource-planner/errors"
	"resource-planner/models"
)

// ParseCapacities reads employee capacity rows:
//
//	employee_id, name, weekly_hours, skills[, hourly_rate[, inactive]]
//
// skills is a ';' separated list of category:level pairs, the first being
// the employee's primary skill.
func ParseCapacities(r io.Reader) ([]models.EmployeeCapacity, error) {
	var caps []models.EmployeeCapacity
	err := readRows(r, 4, 6, func(line int, record []string) error {
		c := models.EmployeeCapacity{EmployeeID: record[0], Name: record[1]}
		if c.EmployeeID == "" {
			return rowError(line, record, fmt.Errorf("%w: employee_id", errors.ErrMissingField))
		}

		var err error
		if c.WeeklyHours, err = parseFloat(record[2], "weekly_hours"); err != nil {
			return rowError(line, record, err)
		}
		if c.Skills, err = parseSkills(record[3]); err != nil {
			return rowError(line, record, err)
		}
		if c.HourlyRate, err = parseOptionalFloat(field(record, 4), "hourly_rate"); err != nil {
			return rowError(line, record, err)
		}
		if c.Inactive, err = parseBool(field(record, 5)); err != nil {
			return rowError(line, record, err)
		}

		caps = append(caps, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return caps, nil
}

// ParseAllocations reads allocation rows:
//
//	id, employee_id, subject_id, scenario_id, type, percentage, start_date,
//	end_date, confidence[, skill[, hourly_rate[, estimated_hours]]]
//
// An empty end_date is open ended, an empty scenario_id is the live scenario.
// Values are only checked for shape here; range checks are the engine's.
func ParseAllocations(r io.Reader) ([]models.Allocation, error) {
	var allocs []models.Allocation
	err := readRows(r, 9, 12, func(line int, record []string) error {
		a := models.Allocation{
			ID:         record[0],
			EmployeeID: record[1],
			SubjectID:  record[2],
			ScenarioID: record[3],
			Type:       models.AllocationType(strings.ToLower(record[4])),
		}
		switch {
		case a.ID == "":
			return rowError(line, record, fmt.Errorf("%w: id", errors.ErrMissingField))
		case a.EmployeeID == "":
			return rowError(line, record, fmt.Errorf("%w: employee_id", errors.ErrMissingField))
		}
		if a.ScenarioID == "" {
			a.ScenarioID = models.LiveScenarioID
		}
		switch a.Type {
		case models.AllocationTentative, models.AllocationProbable, models.AllocationConfirmed:
		case "":
			a.Type = models.AllocationConfirmed
		default:
			return rowError(line, record, fmt.Errorf("%w: %q", errors.ErrInvalidType, record[4]))
		}

		var err error
		if a.Percentage, err = parseFloat(record[5], "percentage"); err != nil {
			return rowError(line, record, err)
		}
		if a.StartDate, err = parseDate(record[6], "start_date"); err != nil {
			return rowError(line, record, err)
		}
		if a.EndDate, err = parseOptionalDate(record[7], "end_date"); err != nil {
			return rowError(line, record, err)
		}
		if a.ConfidenceLevel, err = parseInt(record[8], "confidence"); err != nil {
			return rowError(line, record, err)
		}
		if s := field(record, 9); s != "" {
			skill, err := ParseSkill(s)
			if err != nil {
				return rowError(line, record, err)
			}
			a.Skill = &skill
		}
		if a.HourlyRate, err = parseOptionalFloat(field(record, 10), "hourly_rate"); err != nil {
			return rowError(line, record, err)
		}
		if a.EstimatedHours, err = parseOptionalFloat(field(record, 11), "estimated_hours"); err != nil {
			return rowError(line, record, err)
		}

		allocs = append(allocs, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

// ParseDemand reads demand rows:
//
//	skill, date, required_hours, probability_weight, source[, source_id]
func ParseDemand(r io.Reader) ([]models.DemandRecord, error) {
	var records []models.DemandRecord
	err := readRows(r, 5, 6, func(line int, record []string) error {
		skill, err := ParseSkill(record[0])
		if err != nil {
			return rowError(line, record, err)
		}
		d := models.DemandRecord{
			SkillCategory:   skill.Category,
			ExperienceLevel: skill.Level,
			Source:          models.DemandSource(strings.ToLower(record[4])),
			SourceID:        field(record, 5),
		}
		if d.Date, err = parseDate(record[1], "date"); err != nil {
			return rowError(line, record, err)
		}
		if d.RequiredHours, err = parseFloat(record[2], "required_hours"); err != nil {
			return rowError(line, record, err)
		}
		if d.ProbabilityWeight, err = parseFloat(record[3], "probability_weight"); err != nil {
			return rowError(line, record, err)
		}
		switch d.Source {
		case models.SourcePipeline, models.SourceScenario:
		default:
			return rowError(line, record, fmt.Errorf("%w: source %q", errors.ErrInvalidType, record[4]))
		}

		records = append(records, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParseTasks reads task rows:
//
//	id, name, duration_days, dependencies[, start[, end]]
//
// dependencies is a ';' separated list of task IDs. An empty duration_days
// derives the duration from start and end; 0 is a milestone.
func ParseTasks(r io.Reader) ([]models.Task, error) {
	var tasks []models.Task
	err := readRows(r, 4, 6, func(line int, record []string) error {
		t := models.Task{ID: record[0], Name: record[1], Dependencies: splitList(record[3])}
		if t.ID == "" {
			return rowError(line, record, fmt.Errorf("%w: id", errors.ErrMissingField))
		}

		var err error
		if record[2] != "" {
			days, err := parseInt(record[2], "duration_days")
			if err != nil {
				return rowError(line, record, err)
			}
			t.DurationDays = &days
		}
		if t.Start, err = parseOptionalDate(field(record, 4), "start"); err != nil {
			return rowError(line, record, err)
		}
		if t.End, err = parseOptionalDate(field(record, 5), "end"); err != nil {
			return rowError(line, record, err)
		}

		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func ParseCapacitiesFile(path string) ([]models.EmployeeCapacity, error) {
	return openFile(path, "capacities", ParseCapacities)
}

func ParseAllocationsFile(path string) ([]models.Allocation, error) {
	return openFile(path, "allocations", ParseAllocations)
}

func ParseDemandFile(path string) ([]models.DemandRecord, error) {
	return openFile(path, "demand", ParseDemand)
}

func ParseTasksFile(path string) ([]models.Task, error) {
	return openFile(path, "tasks", ParseTasks)
}

package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"resource-planner/errors"
	"resource-planner/models"
)

// pipelineFile is the YAML document holding pipeline deals.
type pipelineFile struct {
	Deals []models.PipelineDeal `yaml:"deals"`
}

// ParsePipeline reads pipeline deals from YAML:
//
//	deals:
//	  - id: acme-renewal
//	    stage: proposal
//	    probability: 60
//	    start_date: 2025-02-01
//	    end_date: 2025-06-30
//	    requirements:
//	      - skill: {category: backend, level: senior}
//	        hours_per_week: 40
//	        priority: 1
func ParsePipeline(r io.Reader) ([]models.PipelineDeal, error) {
	var doc pipelineFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}

	for i, d := range doc.Deals {
		switch {
		case d.ID == "":
			return nil, fmt.Errorf("deal #%d: %w: id", i+1, errors.ErrMissingField)
		case d.Stage == "":
			return nil, fmt.Errorf("deal %q: %w: stage", d.ID, errors.ErrMissingField)
		case d.StartDate.IsZero() || d.EndDate.IsZero():
			return nil, fmt.Errorf("deal %q: %w: start_date and end_date", d.ID, errors.ErrMissingField)
		}
		for _, req := range d.Requirements {
			if req.Skill.Category == "" || !models.ValidLevel(req.Skill.Level) {
				return nil, fmt.Errorf("deal %q: %w: %s:%s", d.ID, errors.ErrInvalidSkill, req.Skill.Category, req.Skill.Level)
			}
		}
	}
	return doc.Deals, nil
}

func ParsePipelineFile(path string) ([]models.PipelineDeal, error) {
	return openFile(path, "pipeline", ParsePipeline)
}

package models

import "time"

// Project is the parent entity tasks, schedules and payments point at.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Client      string        `json:"client"`
	Description string        `json:"description,omitempty"`
	StartDate   string        `json:"startDate,omitempty"`
	EndDate     string        `json:"endDate,omitempty"`
	Budget      Number        `json:"budget"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

func (p Project) Clone() Project {
	p.UpdatedAt = cloneTime(p.UpdatedAt)
	return p
}

// ProjectPatch carries the fields of a partial project update. Nil fields are
// left untouched.
type ProjectPatch struct {
	Name        *string        `json:"name,omitempty"`
	Client      *string        `json:"client,omitempty"`
	Description *string        `json:"description,omitempty"`
	StartDate   *string        `json:"startDate,omitempty"`
	EndDate     *string        `json:"endDate,omitempty"`
	Budget      *Number        `json:"budget,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

// Apply merges the patch into p and stamps UpdatedAt.
func (pp ProjectPatch) Apply(p *Project, now time.Time) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Client != nil {
		p.Client = *pp.Client
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.StartDate != nil {
		p.StartDate = *pp.StartDate
	}
	if pp.EndDate != nil {
		p.EndDate = *pp.EndDate
	}
	if pp.Budget != nil {
		p.Budget = *pp.Budget
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	p.UpdatedAt = &now
}

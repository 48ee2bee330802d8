package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job is one periodic maintenance task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered set of jobs a tick runs. Names are unique.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs in order, ignoring nils. A duplicate or blank
// name panics.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("job name required")
	}
	if slices.Contains(r.Names(), name) {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the jobs in run order. The slice is a copy.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = strings.TrimSpace(job.Name())
	}
	return names
}

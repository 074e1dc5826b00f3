package api

import (
	"context"

	"github.com/lysyi3m/milestone-timeline/app/timeline"
)

type LoaderInterface interface {
	Load(ctx context.Context) (*timeline.Dataset, error)
}

type GeneratorInterface interface {
	Run(dataset *timeline.Dataset) (string, error)
}

var (
	_ LoaderInterface    = (*timeline.Loader)(nil)
	_ GeneratorInterface = (*timeline.Generator)(nil)
)

type Handler struct {
	loader    LoaderInterface
	generator GeneratorInterface
	filterer  *timeline.Filterer
	version   string
}

type timelineResponse struct {
	LastUpdated string               `json:"lastUpdated"`
	Milestones  []timeline.Milestone `json:"milestones"`
	Fallback    bool                 `json:"fallback"`
	Error       string               `json:"error,omitempty"`
}

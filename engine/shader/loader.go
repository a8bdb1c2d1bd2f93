package shader

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	log "github.com/sirupsen/logrus"
)

// Request names one shader to load.
type Request struct {
	// Key identifies the loaded shader in the result.
	Key string

	// Name is the resource name passed to Source.Load.
	Name string

	Type ShaderType
}

type loader struct {
	src      Source
	workers  int
	validate bool
}

// Loader fetches, validates and reflects a set of shaders in parallel.
type Loader interface {
	// LoadAll loads every request and blocks until all of them finished.
	//
	// Parameters:
	//   - reqs: the shaders to load
	//
	// Returns:
	//   - map[string]Shader: the loaded shaders keyed by Request.Key
	//   - error: the error of the first failing request in request order, nil if all succeeded
	LoadAll(reqs ...Request) (map[string]Shader, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader over src. By default it uses two workers and validates with naga.
//
// Parameters:
//   - src: the shader source
//   - options: functional options applied in order
//
// Returns:
//   - Loader: the configured loader
func NewLoader(src Source, options ...LoaderBuilderOption) Loader {
	l := &loader{
		src:      src,
		workers:  2,
		validate: true,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadAll(reqs ...Request) (map[string]Shader, error) {
	shaders := make([]Shader, len(reqs))
	errs := make([]error, len(reqs))

	// The workers exit once the task channel is closed and drained. The pool's Stop shares one
	// stop channel between workers and can leave some of them blocked.
	tasks := make(chan worker.Task, len(reqs))
	stop := make(chan int)
	for i := range min(l.workers, len(reqs)) {
		worker.NewWorker(i, tasks, stop, time.Second, nil).Start()
	}

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		idx, r := i, req
		tasks <- worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				shaders[idx], errs[idx] = l.load(r)
				return nil, nil
			},
		}
	}
	close(tasks)
	wg.Wait()

	result := make(map[string]Shader, len(reqs))
	for i, req := range reqs {
		if errs[i] != nil {
			return nil, errs[i]
		}
		result[req.Key] = shaders[i]
	}

	log.WithField("count", len(result)).Debug("shaders loaded")
	return result, nil
}

func (l *loader) load(r Request) (Shader, error) {
	source, err := l.src.Load(r.Name)
	if err != nil {
		return nil, err
	}
	if l.validate {
		if err := Validate(r.Name, source); err != nil {
			return nil, err
		}
	}
	s, err := NewShader(r.Key, r.Type, source)
	if err != nil {
		return nil, &ShaderLoadError{Name: r.Name, Err: fmt.Errorf("reflection failed: %w", err)}
	}
	return s, nil
}

package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConstruction is returned by TryBuild when a mandatory field is missing or a value is out of range
var ErrInvalidConstruction = errors.New("invalid construction")

// DefaultPolicy supplies fallback values for fields a producer leaves unset
type DefaultPolicy interface {
	DefaultTimeout() time.Duration
	DefaultMaxRetry() int
}

// Defaults is a resolved default policy
type Defaults struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxRetry int           `yaml:"max_retry"`
}

// DefaultTimeout implements DefaultPolicy
func (d Defaults) DefaultTimeout() time.Duration { return d.Timeout }

// DefaultMaxRetry implements DefaultPolicy
func (d Defaults) DefaultMaxRetry() int { return d.MaxRetry }

// RequestBuilder accumulates the fields of a JobRequest
type RequestBuilder[A any] struct {
	policy DefaultPolicy

	id       *string
	name     *string
	argument *A

	priority   *int
	maxRetry   *int
	keepResult *bool
	timeout    *time.Duration
}

// NewRequestBuilder creates a builder that falls back to policy for timeout and max_retry
func NewRequestBuilder[A any](policy DefaultPolicy) *RequestBuilder[A] {
	if policy == nil {
		policy = Defaults{}
	}
	return &RequestBuilder[A]{policy: policy}
}

// ID sets the request id
func (b *RequestBuilder[A]) ID(id string) *RequestBuilder[A] {
	b.id = &id
	return b
}

// Name sets the job name used to pick a handler
func (b *RequestBuilder[A]) Name(name string) *RequestBuilder[A] {
	b.name = &name
	return b
}

// Argument sets the handler argument
func (b *RequestBuilder[A]) Argument(arg A) *RequestBuilder[A] {
	b.argument = &arg
	return b
}

// Priority sets the scheduling priority
func (b *RequestBuilder[A]) Priority(priority int) *RequestBuilder[A] {
	b.priority = &priority
	return b
}

// MaxRetry overrides the policy retry count
func (b *RequestBuilder[A]) MaxRetry(maxRetry int) *RequestBuilder[A] {
	b.maxRetry = &maxRetry
	return b
}

// KeepResult asks the result consumer to retain the result
func (b *RequestBuilder[A]) KeepResult(keep bool) *RequestBuilder[A] {
	b.keepResult = &keep
	return b
}

// Timeout sets the execution budget; it travels in milliseconds
func (b *RequestBuilder[A]) Timeout(timeout time.Duration) *RequestBuilder[A] {
	b.timeout = &timeout
	return b
}

// Build resolves defaults and returns the request.
// It panics if id, name or argument was never set; use TryBuild for untrusted input.
func (b *RequestBuilder[A]) Build() JobRequest[A] {
	req, err := b.TryBuild()
	if err != nil {
		panic(err.Error())
	}
	return req
}

// TryBuild is Build returning ErrInvalidConstruction instead of panicking
func (b *RequestBuilder[A]) TryBuild() (JobRequest[A], error) {
	switch {
	case b.id == nil || *b.id == "":
		return JobRequest[A]{}, fmt.Errorf("%w: id is required", ErrInvalidConstruction)
	case b.name == nil || *b.name == "":
		return JobRequest[A]{}, fmt.Errorf("%w: name is required", ErrInvalidConstruction)
	case b.argument == nil:
		return JobRequest[A]{}, fmt.Errorf("%w: argument is required", ErrInvalidConstruction)
	}

	req := JobRequest[A]{
		id:         *b.id,
		name:       *b.name,
		argument:   *b.argument,
		priority:   0,
		maxRetry:   b.policy.DefaultMaxRetry(),
		keepResult: false,
	}

	timeout := b.policy.DefaultTimeout()
	if b.timeout != nil {
		timeout = *b.timeout
	}
	if b.priority != nil {
		req.priority = *b.priority
	}
	if b.maxRetry != nil {
		req.maxRetry = *b.maxRetry
	}
	if b.keepResult != nil {
		req.keepResult = *b.keepResult
	}

	if timeout < 0 {
		return JobRequest[A]{}, fmt.Errorf("%w: timeout must not be negative", ErrInvalidConstruction)
	}
	if req.maxRetry < 0 {
		return JobRequest[A]{}, fmt.Errorf("%w: max_retry must not be negative", ErrInvalidConstruction)
	}
	req.timeout = timeout.Milliseconds()

	return req, nil
}

package scorm

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

var ErrUnknownMethod = errors.New("unknown scorm api method")

const (
	apiTrue  = "true"
	apiFalse = "false"
)

// API exposes a Session through the string-typed runtime calls packages make.
// Booleans are "true"/"false" and error codes are decimal strings.
type API struct {
	s *Session
}

func NewAPI(s *Session) *API { return &API{s: s} }

func (a *API) Session() *Session { return a.s }

func result(err error) string {
	if err != nil {
		return apiFalse
	}
	return apiTrue
}

func (a *API) initialize(param string) string {
	if param != "" {
		return result(a.s.rejectArgument(callInit, "parameter must be empty"))
	}
	_, err := a.s.Initialize()
	return result(err)
}

func (a *API) finish(ctx context.Context, param string) string {
	if param != "" {
		return result(a.s.rejectArgument(callTerminate, "parameter must be empty"))
	}
	return result(a.s.Finish(ctx))
}

func (a *API) commit(ctx context.Context, param string) string {
	if param != "" {
		return result(a.s.rejectArgument(callCommit, "parameter must be empty"))
	}
	return result(a.s.Commit(ctx))
}

func (a *API) getValue(key string) string {
	v, err := a.s.GetValue(key)
	if err != nil {
		return ""
	}
	return v
}

func (a *API) lastError() string { return a.s.GetLastError().String() }

func (a *API) errorString(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	return a.s.GetErrorString(Code(n))
}

// SCORM 1.2

func (a *API) LMSInitialize(param string) string                  { return a.initialize(param) }
func (a *API) LMSFinish(ctx context.Context, param string) string { return a.finish(ctx, param) }
func (a *API) LMSGetValue(key string) string                      { return a.getValue(key) }
func (a *API) LMSSetValue(key, value string) string               { return result(a.s.SetValue(key, value)) }
func (a *API) LMSCommit(ctx context.Context, param string) string { return a.commit(ctx, param) }
func (a *API) LMSGetLastError() string                            { return a.lastError() }
func (a *API) LMSGetErrorString(code string) string               { return a.errorString(code) }
func (a *API) LMSGetDiagnostic(code string) string                { return a.s.GetDiagnostic(code) }

// SCORM 2004

func (a *API) Initialize(param string) string                     { return a.initialize(param) }
func (a *API) Terminate(ctx context.Context, param string) string { return a.finish(ctx, param) }
func (a *API) GetValue(key string) string                         { return a.getValue(key) }
func (a *API) SetValue(key, value string) string                  { return result(a.s.SetValue(key, value)) }
func (a *API) Commit(ctx context.Context, param string) string    { return a.commit(ctx, param) }
func (a *API) GetLastError() string                               { return a.lastError() }
func (a *API) GetErrorString(code string) string                  { return a.errorString(code) }
func (a *API) GetDiagnostic(code string) string                   { return a.s.GetDiagnostic(code) }

type method struct {
	version training.ScormVersion
	args    int
	call    func(a *API, ctx context.Context, args []string) string
}

var methods = map[string]method{
	"LMSInitialize":     {training.ScormVersion12, 1, func(a *API, _ context.Context, v []string) string { return a.LMSInitialize(v[0]) }},
	"LMSFinish":         {training.ScormVersion12, 1, func(a *API, ctx context.Context, v []string) string { return a.LMSFinish(ctx, v[0]) }},
	"LMSGetValue":       {training.ScormVersion12, 1, func(a *API, _ context.Context, v []string) string { return a.LMSGetValue(v[0]) }},
	"LMSSetValue":       {training.ScormVersion12, 2, func(a *API, _ context.Context, v []string) string { return a.LMSSetValue(v[0], v[1]) }},
	"LMSCommit":         {training.ScormVersion12, 1, func(a *API, ctx context.Context, v []string) string { return a.LMSCommit(ctx, v[0]) }},
	"LMSGetLastError":   {training.ScormVersion12, 0, func(a *API, _ context.Context, _ []string) string { return a.LMSGetLastError() }},
	"LMSGetErrorString": {training.ScormVersion12, 1, func(a *API, _ context.Context, v []string) string { return a.LMSGetErrorString(v[0]) }},
	"LMSGetDiagnostic":  {training.ScormVersion12, 1, func(a *API, _ context.Context, v []string) string { return a.LMSGetDiagnostic(v[0]) }},
	"Initialize":        {training.ScormVersion2004, 1, func(a *API, _ context.Context, v []string) string { return a.Initialize(v[0]) }},
	"Terminate":         {training.ScormVersion2004, 1, func(a *API, ctx context.Context, v []string) string { return a.Terminate(ctx, v[0]) }},
	"GetValue":          {training.ScormVersion2004, 1, func(a *API, _ context.Context, v []string) string { return a.GetValue(v[0]) }},
	"SetValue":          {training.ScormVersion2004, 2, func(a *API, _ context.Context, v []string) string { return a.SetValue(v[0], v[1]) }},
	"Commit":            {training.ScormVersion2004, 1, func(a *API, ctx context.Context, v []string) string { return a.Commit(ctx, v[0]) }},
	"GetLastError":      {training.ScormVersion2004, 0, func(a *API, _ context.Context, _ []string) string { return a.GetLastError() }},
	"GetErrorString":    {training.ScormVersion2004, 1, func(a *API, _ context.Context, v []string) string { return a.GetErrorString(v[0]) }},
	"GetDiagnostic":     {training.ScormVersion2004, 1, func(a *API, _ context.Context, v []string) string { return a.GetDiagnostic(v[0]) }},
}

// Dispatch invokes a runtime call by name. Missing trailing arguments are treated as "".
// It errors for names outside the session's SCORM version and for surplus arguments.
func (a *API) Dispatch(ctx context.Context, name string, args []string) (string, error) {
	m, ok := methods[name]
	if !ok || m.version != a.s.Version() {
		return "", fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	if len(args) > m.args {
		return "", fmt.Errorf("%s takes %d argument(s), got %d", name, m.args, len(args))
	}
	padded := make([]string, m.args)
	copy(padded, args)
	return m.call(a, ctx, padded), nil
}

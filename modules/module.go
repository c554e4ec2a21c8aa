// Package modules manages TrueNAS resources idempotently.
//
// Every module reads the current state from middlewared, compares it with the parameters it
// was given and only calls a mutating method when something differs. In check mode the
// mutating call is skipped and the result describes what would have happened.
package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tnctl/middleware"
	"tnctl/state"
	"tnctl/types"
	"tnctl/validators"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validators.New()

const (
	StatePresent = "present"
	StateAbsent  = "absent"
)

// Env is what a module runs against
type Env struct {
	MW        middleware.Client
	CheckMode bool
}

// Module describes one resource type
type Module struct {
	Name string
	Help string

	// Alternative parameter names, mapped to the canonical one
	Aliases map[string]string

	// Params returns a pointer to a params struct with its defaults filled in
	Params func() any

	Run func(ctx context.Context, env *Env, params any) (*types.Result, error)
}

// Parameter structs may implement checker for rules the validate tags can't express
type checker interface {
	check() error
}

// define ties a typed run function to a Module
func define[T any](name, help string, aliases map[string]string, defaults func() *T, run func(ctx context.Context, env *Env, p *T) (*types.Result, error)) Module {
	return Module{
		Name:    name,
		Help:    help,
		Aliases: aliases,
		Params: func() any {
			if defaults == nil {
				return new(T)
			}
			return defaults()
		},
		Run: func(ctx context.Context, env *Env, params any) (*types.Result, error) {
			p, ok := params.(*T)

			if !ok {
				return nil, fmt.Errorf("%s: wrong params type %T", name, params)
			}

			return run(ctx, env, p)
		},
	}
}

var registry = map[string]Module{}

func register(mods ...Module) {
	for _, m := range mods {
		if m.Name == "" || m.Params == nil || m.Run == nil {
			panic("module is missing a name, params or run function")
		}

		if _, ok := registry[m.Name]; ok {
			panic("module registered twice: " + m.Name)
		}

		registry[m.Name] = m
	}
}

func init() {
	register(
		serviceModule,
		hostnameModule,
		systemDatasetModule,
		mailModule,
		smartModule,
		nfsModule,
		groupModule,
		userModule,
		datasetModule,
		sharingSMBModule,
		sharingNFSModule,
		poolScrubTaskModule,
		poolSnapshotTaskModule,
		smartTestTaskModule,
		filesystemModule,
		initScriptModule,
		factsModule,
	)
}

// Get returns the named module
func Get(name string) (Module, bool) {
	m, ok := registry[name]
	return m, ok
}

// Names returns every module name, sorted
func Names() []string {
	names := make([]string, 0, len(registry))

	for n := range registry {
		names = append(names, n)
	}

	sort.Strings(names)
	return names
}

// Decode resolves aliases in raw, decodes it into a fresh params struct and validates it.
// Unknown parameters are an error.
func (m Module) Decode(raw map[string]any) (any, error) {
	norm := make(map[string]any, len(raw))

	for k, v := range raw {
		if canon, ok := m.Aliases[k]; ok {
			k = canon
		}

		if _, dup := norm[k]; dup {
			return nil, fmt.Errorf("%s: parameter %q given more than once (check aliases)", m.Name, k)
		}

		norm[k] = v
	}

	params := m.Params()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           params,
	})

	if err != nil {
		return nil, err
	}

	if err := dec.Decode(norm); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	if err := validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors

		if errors.As(err, &verrs) {
			var msgs []string
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("%s: invalid parameters: %s", m.Name, strings.Join(msgs, ", "))
		}

		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}

	if c, ok := params.(checker); ok {
		if err := c.check(); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
	}

	return params, nil
}

// Run decodes raw and runs the module named name
func Run(ctx context.Context, env *Env, name string, raw map[string]any) (*types.Result, error) {
	m, ok := Get(name)

	if !ok {
		return nil, fmt.Errorf("no such module: %s", name)
	}

	params, err := m.Decode(raw)

	if err != nil {
		return nil, err
	}

	res, err := m.Run(ctx, env, params)

	if err != nil {
		state.Logger.Errorw("module failed", zap.String("module", name), zap.Error(err))
		return nil, err
	}

	return res, nil
}

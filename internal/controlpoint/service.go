package controlpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/upnpcp/internal/coerce"
	"github.com/muurk/upnpcp/internal/description"
	"github.com/muurk/upnpcp/internal/logging"
	"github.com/muurk/upnpcp/internal/transport"
	"github.com/muurk/upnpcp/internal/urls"
)

// State is the binding state of a Service
type State int

const (
	StateUnfetched State = iota
	StateFetching
	StateBound
	StateFailed
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateUnfetched:
		return "unfetched"
	case StateFetching:
		return "fetching"
	case StateBound:
		return "bound"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ActionFunc invokes one remote action. In-values are positional, in the
// order the SCPD declares the in-arguments. The result maps out-argument
// names to coerced native values.
type ActionFunc func(ctx context.Context, in ...any) (map[string]any, error)

// FetchResult is delivered by FetchAsync
type FetchResult struct {
	Service *Service
	Err     error
}

// Service is one UPnP service of a discovered device.
//
// NewService only extracts fields and performs no network I/O. Fetch
// downloads the SCPD, builds the state table and binds one ActionFunc per
// declared action.
type Service struct {
	DeviceBaseURL string
	DeviceUDN     string

	SCPDURL     string
	ControlURL  string
	EventSubURL string

	ServiceType string
	ServiceID   string
	XMLNS       string

	cfg       Config
	transport Transport

	mu          sync.RWMutex
	state       State
	err         error
	specVersion description.SpecVersion
	actions     []description.Action
	stateTable  map[string]description.StateVariable
	bound       map[string]ActionFunc
}

// NewService builds a Service from its serviceList entry. URLs are joined to
// deviceBaseURL with urls.Build; a field the description omits stays empty.
func NewService(deviceBaseURL string, info description.ServiceListInfo, cfg Config, t Transport) *Service {
	return newService(deviceBaseURL, info, cfg, t, func(ref string) string {
		return urls.Build(deviceBaseURL, ref)
	})
}

func newService(deviceBaseURL string, info description.ServiceListInfo, cfg Config, t Transport,
	resolve func(string) string) *Service {
	return &Service{
		DeviceBaseURL: deviceBaseURL,
		SCPDURL:       resolve(info.SCPDURL),
		ControlURL:    resolve(info.ControlURL),
		EventSubURL:   resolve(info.EventSubURL),
		ServiceType:   info.ServiceType,
		ServiceID:     info.ServiceID,
		XMLNS:         info.ServiceType,
		cfg:           cfg.withDefaults(),
		transport:     t,
		stateTable:    map[string]description.StateVariable{},
		bound:         map[string]ActionFunc{},
	}
}

// String returns a short human-readable label
func (s *Service) String() string {
	return fmt.Sprintf("%s (%s)", s.ServiceID, description.ShortServiceType(s.ServiceType))
}

// Fetch downloads and parses the SCPD, then binds every declared action.
//
// A service without an SCPD URL becomes bound with no actions and no network
// call is made. On failure the service is left in StateFailed with no bound
// actions; calling Fetch again retries.
func (s *Service) Fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateFetching {
		s.mu.Unlock()
		return ErrFetchInProgress
	}
	s.state = StateFetching
	s.err = nil
	s.mu.Unlock()

	if s.SCPDURL == "" {
		logging.Debug("Service has no SCPD URL, binding no actions",
			zap.String("service_id", s.ServiceID),
		)
		s.finish(description.SpecVersion{}, nil, map[string]description.StateVariable{}, map[string]ActionFunc{})
		return nil
	}

	raw, err := s.transport.Get(ctx, s.SCPDURL)
	if err != nil {
		return s.fail(fmt.Errorf("failed to fetch SCPD for %s: %w", s.ServiceID, err))
	}

	scpd, err := description.ParseSCPD(raw)
	if err != nil {
		logging.LogRawBytes("Unparseable SCPD", raw)
		return s.fail(fmt.Errorf("failed to parse SCPD for %s: %w", s.ServiceID, err))
	}

	// The state table must be complete before any action is bound:
	// out-argument coercion reads it.
	table := make(map[string]description.StateVariable, len(scpd.StateTable))
	for _, sv := range scpd.StateTable {
		table[sv.Name] = sv
	}

	bound := make(map[string]ActionFunc, len(scpd.Actions))
	for _, action := range scpd.Actions {
		bound[action.Name] = s.bind(action, table)
	}

	s.finish(scpd.SpecVersion, scpd.Actions, table, bound)

	logging.Debug("Service bound",
		zap.String("service_id", s.ServiceID),
		zap.Int("actions", len(bound)),
		zap.Int("state_variables", len(table)),
	)

	return nil
}

// FetchAsync runs Fetch in a goroutine and delivers the outcome on the
// returned channel, which is closed afterwards.
func (s *Service) FetchAsync(ctx context.Context) <-chan FetchResult {
	ch := make(chan FetchResult, 1)
	go func() {
		defer close(ch)
		ch <- FetchResult{Service: s, Err: s.Fetch(ctx)}
	}()
	return ch
}

func (s *Service) finish(version description.SpecVersion, actions []description.Action,
	table map[string]description.StateVariable, bound map[string]ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.specVersion = version
	s.actions = actions
	s.stateTable = table
	s.bound = bound
	s.state = StateBound
	s.err = nil
}

func (s *Service) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = nil
	s.stateTable = map[string]description.StateVariable{}
	s.bound = map[string]ActionFunc{}
	s.state = StateFailed
	s.err = err

	return err
}

// bind generates the callable for one action. table is never mutated after
// Fetch hands it over.
func (s *Service) bind(action description.Action, table map[string]description.StateVariable) ActionFunc {
	inArgs := action.InArguments()
	outArgs := action.OutArguments()

	return func(ctx context.Context, in ...any) (map[string]any, error) {
		if len(in) != len(inArgs) {
			return nil, &ArgumentError{Action: action.Name, Want: len(inArgs), Got: len(in)}
		}
		if s.ControlURL == "" {
			return nil, fmt.Errorf("action %s: %w", action.Name, ErrNoControlURL)
		}

		args := make([]transport.Arg, len(inArgs))
		logArgs := make(map[string]string, len(inArgs))
		for i, arg := range inArgs {
			args[i] = transport.Arg{Name: arg.Name, Value: coerce.Format(in[i])}
			logArgs[arg.Name] = args[i].Value
		}

		logging.LogActionInvoke(s.XMLNS, action.Name, s.ControlURL, logArgs)

		resp, err := s.transport.Call(ctx, &transport.ActionRequest{
			ControlURL:  s.ControlURL,
			ServiceType: s.XMLNS,
			Action:      action.Name,
			Args:        args,
		})
		if err != nil {
			var fault *transport.RemoteFaultError
			if errors.As(err, &fault) {
				return s.handleFault(action.Name, fault)
			}
			return nil, fmt.Errorf("action %s failed: %w", action.Name, err)
		}

		return coerceOut(action.Name, outArgs, table, resp), nil
	}
}

func (s *Service) handleFault(action string, fault *transport.RemoteFaultError) (map[string]any, error) {
	if s.cfg.RaiseOnRemoteError {
		return nil, newActionFault(s.ServiceType, action, fault)
	}

	logging.Warn("Action returned a remote fault",
		zap.String("service_id", s.ServiceID),
		zap.String("action", action),
		zap.Int("status", fault.StatusCode),
		zap.Error(fault),
	)

	return faultResult(fault), nil
}

// faultResult is the best-effort mapping returned for a fault when faults
// are not raised
func faultResult(fault *transport.RemoteFaultError) map[string]any {
	result := map[string]any{}
	if fault.Fault == nil {
		return result
	}

	result["faultcode"] = fault.Fault.Code
	result["faultstring"] = fault.Fault.String
	if code, err := strconv.ParseInt(fault.Fault.ErrorCode, 10, 64); err == nil {
		result["errorCode"] = code
	} else if fault.Fault.ErrorCode != "" {
		result["errorCode"] = fault.Fault.ErrorCode
	}
	if fault.Fault.ErrorDescription != "" {
		result["errorDescription"] = fault.Fault.ErrorDescription
	}

	return result
}

// coerceOut converts the response fields of every declared out-argument.
// Arguments the device did not return, or whose type has no coercion, are
// omitted.
func coerceOut(action string, outArgs []description.Argument,
	table map[string]description.StateVariable, resp *transport.ActionResponse) map[string]any {
	result := make(map[string]any, len(outArgs))

	for _, arg := range outArgs {
		raw, ok := resp.Field(arg.Name)
		if !ok {
			logging.Debug("Out-argument missing from response",
				zap.String("action", action),
				zap.String("argument", arg.Name),
			)
			continue
		}

		sv, ok := table[arg.RelatedStateVariable]
		if !ok {
			logging.Warn("Out-argument references an undeclared state variable",
				zap.String("action", action),
				zap.String("argument", arg.Name),
				zap.String("state_variable", arg.RelatedStateVariable),
			)
			continue
		}

		value, ok := coerce.Coerce(sv.DataType, raw)
		if !ok {
			logging.Debug("Out-argument has no coercible value",
				zap.String("action", action),
				zap.String("argument", arg.Name),
				zap.String("data_type", sv.DataType),
			)
			continue
		}

		result[arg.Name] = value
	}

	return result
}

// State returns the current binding state
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error of the last failed fetch
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SpecVersion returns the SCPD's declared spec version
func (s *Service) SpecVersion() description.SpecVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.specVersion
}

// Actions returns the declared actions in SCPD order
func (s *Service) Actions() []description.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]description.Action(nil), s.actions...)
}

// ActionDefinition returns the declaration of one action
func (s *Service) ActionDefinition(name string) (description.Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actions {
		if a.Name == name {
			return a, true
		}
	}
	return description.Action{}, false
}

// Action returns the bound callable for an action
func (s *Service) Action(name string) (ActionFunc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.bound[name]
	return fn, ok
}

// ActionNames returns the names of all bound actions, sorted
func (s *Service) ActionNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.bound))
	for name := range s.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateVariable looks up an entry of the service state table
func (s *Service) StateVariable(name string) (description.StateVariable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.stateTable[name]
	return sv, ok
}

// Invoke calls a bound action by name
func (s *Service) Invoke(ctx context.Context, name string, in ...any) (map[string]any, error) {
	fn, ok := s.Action(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownAction, name, s.ServiceID)
	}
	return fn(ctx, in...)
}

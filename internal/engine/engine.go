package engine

import (
	"context"
	"errors"
	"time"

	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// Engine hosts the collaborators and step-kind registry shared by every
	// step invocation. It holds no per-entry state; each trigger creates a
	// Run bound to one step+entry pair
	Engine struct {
		store     EntryStore
		forms     FormLookup
		matcher   Matcher
		transport Transport
		directory Directory
		sink      Sink
		docs      DocumentGenerator
		dedupe    Deduper
		archiver  Archiver
		kinds     *Registry
		hooks     *Hooks
		clock     Clock
		formCache *util.LRUCache[*api.Form]
		site      SiteIdentity
		tz        *time.Location
	}

	// Dependencies wires the engine's collaborators. Store, Forms, Directory,
	// Transport, and Sink are required; the rest are optional
	Dependencies struct {
		Store     EntryStore
		Forms     FormLookup
		Matcher   Matcher
		Transport Transport
		Directory Directory
		Sink      Sink
		Docs      DocumentGenerator
		Dedupe    Deduper
		Archiver  Archiver
		Clock     Clock
		Site      SiteIdentity
		Timezone  *time.Location
	}

	// SiteIdentity supplies notification fallback defaults
	SiteIdentity struct {
		Name  string
		Email string
	}

	// Clock provides the current time for schedule and expiration checks
	Clock func() time.Time

	// EntryStore is the shared entry and meta key/value store. EntryMeta
	// returns one consistent snapshot per call; all reads used for a single
	// decision come from that snapshot
	EntryStore interface {
		Entry(ctx context.Context, id api.EntryID) (*api.Entry, error)
		EntryMeta(ctx context.Context, id api.EntryID) (api.Meta, error)
		SetMeta(ctx context.Context, id api.EntryID, key, value string) error
		SetMetaIfAbsent(
			ctx context.Context, id api.EntryID, key, value string,
		) (bool, error)
		DeleteMeta(ctx context.Context, id api.EntryID, key string) error
	}

	// FormLookup resolves form definitions and field metadata
	FormLookup interface {
		Form(ctx context.Context, id api.FormID) (*api.Form, error)
	}

	// Matcher is the injected predicate evaluator for routing rules
	Matcher interface {
		IsMatch(
			actual string, rule *api.RoutingRule, field *api.Field,
		) bool
	}

	// Transport delivers assembled notifications
	Transport interface {
		Deliver(
			ctx context.Context, n *api.Notification, form *api.Form,
			entry *api.Entry,
		) error
	}

	// Directory resolves whether assignee candidates currently exist and
	// translates them to deliverable addresses
	Directory interface {
		UserExists(id string) bool
		RoleExists(role string) bool
		UserAddress(id string) (string, bool)
		RoleAddresses(role string) []string
	}

	// Sink receives workflow lifecycle events
	Sink interface {
		Log(ev *api.Event)
	}

	// DocumentGenerator augments notifications with generated attachments
	DocumentGenerator interface {
		Generate(
			ctx context.Context, form *api.Form, entry *api.Entry,
		) (string, error)
	}

	// Deduper is the optional durable per-recipient dedup record. The
	// in-memory invocation set alone does not give at-most-once delivery
	// across concurrent invocations
	Deduper interface {
		MarkSent(ctx context.Context, key string) (bool, error)
	}

	// Archiver records completed step runs
	Archiver interface {
		ArchiveRun(ctx context.Context, rec *api.RunRecord) error
	}
)

var (
	ErrStoreRequired     = errors.New("entry store is required")
	ErrFormsRequired     = errors.New("form lookup is required")
	ErrDirectoryRequired = errors.New("directory is required")
	ErrTransportRequired = errors.New("transport is required")
	ErrSinkRequired      = errors.New("event sink is required")
	ErrEntryUnavailable  = errors.New("entry store unavailable")
	ErrStepInactive      = errors.New("step is not active")
	ErrUnknownStepKind   = errors.New("unknown step kind")
)

const defaultFormCacheSize = 256

// New creates an engine from its dependencies, applying defaults for the
// optional ones
func New(deps Dependencies) (*Engine, error) {
	if deps.Store == nil {
		return nil, ErrStoreRequired
	}
	if deps.Forms == nil {
		return nil, ErrFormsRequired
	}
	if deps.Directory == nil {
		return nil, ErrDirectoryRequired
	}
	if deps.Transport == nil {
		return nil, ErrTransportRequired
	}
	if deps.Sink == nil {
		return nil, ErrSinkRequired
	}

	e := &Engine{
		store:     deps.Store,
		forms:     deps.Forms,
		matcher:   deps.Matcher,
		transport: deps.Transport,
		directory: deps.Directory,
		sink:      deps.Sink,
		docs:      deps.Docs,
		dedupe:    deps.Dedupe,
		archiver:  deps.Archiver,
		kinds:     NewRegistry(),
		hooks:     NewHooks(),
		clock:     deps.Clock,
		site:      deps.Site,
		tz:        deps.Timezone,
		formCache: util.NewLRUCache[*api.Form](defaultFormCacheSize),
	}
	if e.matcher == nil {
		e.matcher = NewFieldMatcher()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.tz == nil {
		e.tz = time.UTC
	}

	RegisterBuiltinKinds(e.kinds)
	return e, nil
}

// Kinds exposes the step-kind registry for custom registrations
func (e *Engine) Kinds() *Registry {
	return e.kinds
}

// Hooks exposes the extension-point transform pipelines
func (e *Engine) Hooks() *Hooks {
	return e.hooks
}

// Now returns the current time in UTC from the injected clock
func (e *Engine) Now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) form(ctx context.Context, id api.FormID) (*api.Form, error) {
	return e.formCache.Get(string(id), func() (*api.Form, error) {
		return e.forms.Form(ctx, id)
	})
}

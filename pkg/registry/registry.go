package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yosida95/uritemplate/v3"

	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
)

var (
	// ErrDuplicate is returned when a name, URI or URI template is already registered
	ErrDuplicate = errors.New("capability already registered")
	// ErrFrozen is returned by Register after Freeze
	ErrFrozen = errors.New("registry is frozen")
	// ErrInvalid is returned for a malformed capability declaration
	ErrInvalid = errors.New("invalid capability")
	// ErrNotFound is returned when nothing is registered under the name or URI scheme
	ErrNotFound = errors.New("capability not found")
	// ErrNoMatch is returned when a template claims the URI scheme but does not match the URI
	ErrNoMatch = errors.New("resource URI does not match template")
)

// Entry is a registered capability
type Entry interface {
	Kind() Kind
	CapabilityName() string
}

// ToolEntry is a registered tool with its compiled argument validator
type ToolEntry struct {
	Tool
	Validator  *schema.Validator
	Descriptor protocol.Tool
}

// PromptEntry is a registered prompt with its compiled argument validator
type PromptEntry struct {
	Prompt
	Validator  *schema.Validator
	Descriptor protocol.Prompt
}

// ResourceEntry is a registered static or templated resource
type ResourceEntry struct {
	Resource
	template *uritemplate.Template
	scheme   string
}

// Templated reports whether the resource is addressed by a URI template
func (e *ResourceEntry) Templated() bool {
	return e.template != nil
}

// Registry stores capabilities by kind, in registration order
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	tools     []*ToolEntry
	toolIndex map[string]*ToolEntry

	prompts     []*PromptEntry
	promptIndex map[string]*PromptEntry

	resources     []*ResourceEntry
	resourceIndex map[string]*ResourceEntry
	staticURIs    map[string]*ResourceEntry
	templates     []*ResourceEntry
	templateRaws  map[string]*ResourceEntry
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		toolIndex:     make(map[string]*ToolEntry),
		promptIndex:   make(map[string]*PromptEntry),
		resourceIndex: make(map[string]*ResourceEntry),
		staticURIs:    make(map[string]*ResourceEntry),
		templateRaws:  make(map[string]*ResourceEntry),
	}
}

// Register adds a capability. Duplicate names within a kind, and duplicate
// resource URIs or templates, are rejected with ErrDuplicate.
func (r *Registry) Register(c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %s %q: %w", c.Kind(), c.CapabilityName(), ErrFrozen)
	}
	if c.CapabilityName() == "" {
		return fmt.Errorf("register %s: empty name: %w", c.Kind(), ErrInvalid)
	}

	switch v := c.(type) {
	case Tool:
		return r.registerTool(v)
	case *Tool:
		return r.registerTool(*v)
	case Prompt:
		return r.registerPrompt(v)
	case *Prompt:
		return r.registerPrompt(*v)
	case Resource:
		return r.registerResource(v)
	case *Resource:
		return r.registerResource(*v)
	default:
		return fmt.Errorf("register %q: unsupported capability type %T: %w", c.CapabilityName(), c, ErrInvalid)
	}
}

// MustRegister is Register that panics, for startup wiring of built-in capabilities
func (r *Registry) MustRegister(caps ...Capability) {
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) registerTool(t Tool) error {
	if _, exists := r.toolIndex[t.Name]; exists {
		return fmt.Errorf("tool %q: %w", t.Name, ErrDuplicate)
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: nil handler: %w", t.Name, ErrInvalid)
	}

	validator, err := schema.NewValidator(t.Input)
	if err != nil {
		return fmt.Errorf("tool %q: %v: %w", t.Name, err, ErrInvalid)
	}
	inputSchema, err := t.Input.JSONSchema()
	if err != nil {
		return fmt.Errorf("tool %q: %w", t.Name, err)
	}

	entry := &ToolEntry{
		Tool:      t,
		Validator: validator,
		Descriptor: protocol.Tool{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: inputSchema,
		},
	}
	r.tools = append(r.tools, entry)
	r.toolIndex[t.Name] = entry
	return nil
}

func (r *Registry) registerPrompt(p Prompt) error {
	if _, exists := r.promptIndex[p.Name]; exists {
		return fmt.Errorf("prompt %q: %w", p.Name, ErrDuplicate)
	}
	if p.Handler == nil {
		return fmt.Errorf("prompt %q: nil handler: %w", p.Name, ErrInvalid)
	}
	for _, arg := range p.Arguments {
		if arg.Type != schema.TypeString {
			return fmt.Errorf("prompt %q: argument %q must be a string: %w", p.Name, arg.Name, ErrInvalid)
		}
	}

	validator, err := schema.NewValidator(p.Arguments)
	if err != nil {
		return fmt.Errorf("prompt %q: %v: %w", p.Name, err, ErrInvalid)
	}

	descriptor := protocol.Prompt{
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
	}
	for _, arg := range p.Arguments {
		descriptor.Arguments = append(descriptor.Arguments, protocol.PromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		})
	}

	entry := &PromptEntry{Prompt: p, Validator: validator, Descriptor: descriptor}
	r.prompts = append(r.prompts, entry)
	r.promptIndex[p.Name] = entry
	return nil
}

func (r *Registry) registerResource(res Resource) error {
	if _, exists := r.resourceIndex[res.Name]; exists {
		return fmt.Errorf("resource %q: %w", res.Name, ErrDuplicate)
	}
	if res.Handler == nil {
		return fmt.Errorf("resource %q: nil handler: %w", res.Name, ErrInvalid)
	}
	if (res.URI == "") == (res.URITemplate == "") {
		return fmt.Errorf("resource %q: exactly one of URI and URITemplate must be set: %w", res.Name, ErrInvalid)
	}

	entry := &ResourceEntry{Resource: res}

	if res.URI != "" {
		if _, exists := r.staticURIs[res.URI]; exists {
			return fmt.Errorf("resource URI %q: %w", res.URI, ErrDuplicate)
		}
		entry.scheme = schemeOf(res.URI)
		r.staticURIs[res.URI] = entry
	} else {
		if _, exists := r.templateRaws[res.URITemplate]; exists {
			return fmt.Errorf("resource template %q: %w", res.URITemplate, ErrDuplicate)
		}
		tmpl, err := uritemplate.New(res.URITemplate)
		if err != nil {
			return fmt.Errorf("resource %q: bad template %q: %v: %w", res.Name, res.URITemplate, err, ErrInvalid)
		}
		if len(tmpl.Varnames()) == 0 {
			return fmt.Errorf("resource %q: template %q has no placeholders: %w", res.Name, res.URITemplate, ErrInvalid)
		}
		entry.template = tmpl
		entry.scheme = schemeOf(res.URITemplate)
		r.templateRaws[res.URITemplate] = entry
		r.templates = append(r.templates, entry)
	}

	r.resources = append(r.resources, entry)
	r.resourceIndex[res.Name] = entry
	return nil
}

// Freeze makes the registry read-only
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Resolve looks up a capability by kind and name
func (r *Registry) Resolve(kind Kind, name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		entry Entry
		ok    bool
	)
	switch kind {
	case KindTool:
		var e *ToolEntry
		e, ok = r.toolIndex[name]
		entry = e
	case KindPrompt:
		var e *PromptEntry
		e, ok = r.promptIndex[name]
		entry = e
	case KindResource:
		var e *ResourceEntry
		e, ok = r.resourceIndex[name]
		entry = e
	}
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return entry, nil
}

// Tool returns the registered tool with the given name
func (r *Registry) Tool(name string) (*ToolEntry, error) {
	entry, err := r.Resolve(KindTool, name)
	if err != nil {
		return nil, err
	}
	return entry.(*ToolEntry), nil
}

// Prompt returns the registered prompt with the given name
func (r *Registry) Prompt(name string) (*PromptEntry, error) {
	entry, err := r.Resolve(KindPrompt, name)
	if err != nil {
		return nil, err
	}
	return entry.(*PromptEntry), nil
}

// ResolveResource finds the resource serving uri. Static URIs are matched
// exactly before templates are tried in registration order. A template
// matches only when every placeholder is bound to a non-empty value.
//
// ErrNotFound means no template shares the URI scheme; ErrNoMatch means
// at least one does, but none matched.
func (r *Registry) ResolveResource(uri string) (*ResourceEntry, Bindings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.staticURIs[uri]; ok {
		return entry, nil, nil
	}

	scheme := schemeOf(uri)
	var claimed *ResourceEntry
	for _, entry := range r.templates {
		if entry.scheme != scheme {
			continue
		}
		if claimed == nil {
			claimed = entry
		}
		if bindings, ok := match(entry.template, uri); ok {
			return entry, bindings, nil
		}
	}

	if claimed != nil {
		return claimed, nil, fmt.Errorf("%q against %q: %w", uri, claimed.URITemplate, ErrNoMatch)
	}
	return nil, nil, fmt.Errorf("resource %q: %w", uri, ErrNotFound)
}

func match(tmpl *uritemplate.Template, uri string) (Bindings, bool) {
	values := tmpl.Match(uri)
	if values == nil {
		return nil, false
	}

	bindings := make(Bindings, len(tmpl.Varnames()))
	for _, name := range tmpl.Varnames() {
		v := values.Get(name)
		if !v.Valid() || v.String() == "" {
			return nil, false
		}
		bindings[name] = v.String()
	}
	return bindings, true
}

func schemeOf(uri string) string {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// Tools returns the tool descriptors in registration order
func (r *Registry) Tools() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.Tool, 0, len(r.tools))
	for _, entry := range r.tools {
		out = append(out, entry.Descriptor)
	}
	return out
}

// Prompts returns the prompt descriptors in registration order
func (r *Registry) Prompts() []protocol.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.Prompt, 0, len(r.prompts))
	for _, entry := range r.prompts {
		out = append(out, entry.Descriptor)
	}
	return out
}

// Resources returns the static resource descriptors in registration order
func (r *Registry) Resources() []protocol.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []protocol.Resource
	for _, entry := range r.resources {
		if entry.Templated() {
			continue
		}
		out = append(out, protocol.Resource{
			URI:         entry.URI,
			Name:        entry.Name,
			Title:       entry.Title,
			Description: entry.Description,
			MIMEType:    entry.MIMEType,
		})
	}
	if out == nil {
		out = []protocol.Resource{}
	}
	return out
}

// Templates returns the resource template descriptors in registration order
func (r *Registry) Templates() []protocol.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.ResourceTemplate, 0, len(r.templates))
	for _, entry := range r.templates {
		out = append(out, protocol.ResourceTemplate{
			URITemplate: entry.URITemplate,
			Name:        entry.Name,
			Title:       entry.Title,
			Description: entry.Description,
			MIMEType:    entry.MIMEType,
		})
	}
	return out
}

// Counts returns the number of registered capabilities per kind
func (r *Registry) Counts() map[Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[Kind]int{
		KindTool:     len(r.tools),
		KindPrompt:   len(r.prompts),
		KindResource: len(r.resources),
	}
}

package ensobj

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"goensight/internal/logging"
	"goensight/internal/pylit"
)

// Evaluator runs one command on the engine in evaluated mode and returns
// the raw repr text. The Marshaller uses it for the single discriminator
// round-trip a fresh polymorphic object needs.
type Evaluator interface {
	Eval(ctx context.Context, command string) (string, error)
}

// EvalFunc adapts a function to the Evaluator interface.
type EvalFunc func(ctx context.Context, command string) (string, error)

func (f EvalFunc) Eval(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

const (
	classMarker     = "Class: "
	objIDMarker     = "CvfObjID:"
	cachedNoMarker  = ", cached:no"
	cachedYesMarker = ", cached:yes"
)

// Marshaller rewrites marker-bearing reply text into proxy handles.
type Marshaller struct {
	cache *Cache
	eval  Evaluator
	log   *slog.Logger

	mu    sync.RWMutex
	enums map[string]int64
}

// NewMarshaller builds a marshaller over the given cache. eval performs
// discriminator round-trips; enum ids arrive later via SetEnums.
func NewMarshaller(cache *Cache, eval Evaluator, logger *slog.Logger) *Marshaller {
	return &Marshaller{
		cache: cache,
		eval:  eval,
		log:   logging.NewComponentLogger(logger, "ensobj"),
	}
}

// SetEnums installs the engine's enum snapshot. Subtype resolution needs
// the discriminator attribute ids (PARTTYPE and friends) from it; until it
// is set, polymorphic objects marshal as their base class.
func (m *Marshaller) SetEnums(enums map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enums = enums
}

func (m *Marshaller) enumValue(name string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.enums[name]
	return value, ok
}

// Unmarshal converts one evaluated-mode reply into Go values: scalars and
// containers via the literal parser, object markers via the cache. A
// bracketed top level comes back as ObjList. Malformed marker text stops
// the scan and flows through to the literal parse, whose error then names
// the offending input.
func (m *Marshaller) Unmarshal(ctx context.Context, text string) (any, error) {
	m.cache.Prune()

	spliced, err := m.splice(ctx, text)
	if err != nil {
		return nil, err
	}

	spliced = strings.TrimSpace(spliced)
	wrapped := strings.HasPrefix(spliced, "[") && strings.HasSuffix(spliced, "]")

	value, err := pylit.ParseCalls(spliced, m.resolveRef)
	if err != nil {
		return nil, err
	}
	if wrapped {
		if items, ok := value.([]any); ok {
			return ObjList(items), nil
		}
	}
	return value, nil
}

// splice performs the single scan pass: emit literal spans as-is, replace
// each well-formed marker with its reference expression. Replacement text
// is never re-scanned. A malformed marker ends the pass with the remainder
// untouched.
func (m *Marshaller) splice(ctx context.Context, s string) (string, error) {
	var out strings.Builder
	rest := s
	for {
		idIdx := strings.Index(rest, objIDMarker)
		if idIdx < 0 {
			break
		}
		classIdx := strings.Index(rest, classMarker)
		if classIdx < 0 || classIdx > idIdx {
			break
		}
		tailLen := len(cachedNoMarker)
		tailIdx := strings.Index(rest, cachedNoMarker)
		if tailIdx < 0 {
			tailLen = len(cachedYesMarker)
			tailIdx = strings.Index(rest, cachedYesMarker)
		}
		if tailIdx < idIdx+len(objIDMarker) {
			break
		}

		objID, err := strconv.ParseInt(strings.TrimSpace(rest[idIdx+len(objIDMarker):tailIdx]), 10, 64)
		if err != nil {
			break
		}
		class := rest[classIdx+len(classMarker) : tailIdx]
		comma := strings.Index(class, ",")
		if comma < 0 {
			break
		}
		class = class[:comma]

		expr, err := m.referenceExpr(ctx, objID, class)
		if err != nil {
			return "", err
		}
		out.WriteString(rest[:classIdx])
		out.WriteString(expr)
		rest = rest[tailIdx+tailLen:]
	}
	out.WriteString(rest)
	return out.String(), nil
}

// referenceExpr picks the replacement text for one marker: the cache
// reference for a known id, otherwise a constructor with the subtype
// resolved when the class is polymorphic.
func (m *Marshaller) referenceExpr(ctx context.Context, objID int64, class string) (string, error) {
	if _, ok := m.cache.Lookup(objID); ok {
		return fmt.Sprintf("session.obj_instance(%d)", objID), nil
	}

	subclassInfo := ""
	if rule, ok := subtypeRules[class]; ok {
		attrID, ok := m.enumValue(rule.discriminator)
		if !ok {
			m.log.Debug("discriminator enum unknown, keeping base class",
				logging.String(logging.FieldClass, class),
				logging.String("enum", rule.discriminator))
		} else {
			value, isInt, err := m.discriminator(ctx, objID, attrID)
			if err != nil {
				return "", err
			}
			if name, ok := rule.values[value]; isInt && ok {
				class = name
				subclassInfo = fmt.Sprintf(",attr_id=%d, attr_value=%d", attrID, value)
			}
		}
	}
	return fmt.Sprintf("session.ensight.objs.%s(session, %d%s)", class, objID, subclassInfo), nil
}

// discriminator asks the engine for one attribute value of a remote
// object. Non-integer replies report isInt false and leave the base class
// in place.
func (m *Marshaller) discriminator(ctx context.Context, objID, attrID int64) (value int64, isInt bool, err error) {
	command := fmt.Sprintf("%s.getattr(%d)", RemoteRef(objID), attrID)
	text, err := m.eval.Eval(ctx, command)
	if err != nil {
		return 0, false, fmt.Errorf("resolve subtype of object %d: %w", objID, err)
	}
	parsed, err := pylit.Parse(strings.TrimSpace(text))
	if err != nil {
		return 0, false, fmt.Errorf("resolve subtype of object %d: %w", objID, err)
	}
	n, ok := parsed.(int64)
	return n, ok, nil
}

// resolveRef interprets the session-local reference grammar during the
// literal parse.
func (m *Marshaller) resolveRef(name string, args []any, kwargs map[string]any) (any, error) {
	switch {
	case name == "session" && args == nil && kwargs == nil:
		return sessionRef{}, nil

	case name == "session.obj_instance":
		if len(args) != 1 {
			return nil, fmt.Errorf("obj_instance: want 1 argument, got %d", len(args))
		}
		id, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("obj_instance: non-integer id %v", args[0])
		}
		h, ok := m.cache.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("obj_instance: no cached object %d", id)
		}
		return h, nil

	case strings.HasPrefix(name, "session.ensight.objs."):
		class := strings.TrimPrefix(name, "session.ensight.objs.")
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: want 2 arguments, got %d", class, len(args))
		}
		id, ok := args[1].(int64)
		if !ok {
			return nil, fmt.Errorf("%s: non-integer id %v", class, args[1])
		}
		h := &Handle{ID: id, Class: class}
		if attrID, ok := kwargs["attr_id"].(int64); ok {
			h.AttrID = attrID
			h.AttrValue = kwargs["attr_value"]
		}
		return m.cache.Intern(h), nil
	}
	return nil, fmt.Errorf("unsupported reference %q", name)
}

// sessionRef stands in for the session argument in constructor
// expressions; it never escapes a parse.
type sessionRef struct{}

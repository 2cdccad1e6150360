package session

import (
	"context"
	"fmt"
	"strings"

	"goensight/internal/ensobj"
	"goensight/internal/logging"
)

// enumSnapshotCommand dumps the engine's enum module as a name to
// value dictionary in a single round trip.
const enumSnapshotCommand = "{key: getattr(ensight.objs.enums, key) for key in dir(ensight.objs.enums)}"

// bootstrap primes the session after the link validates: the enum
// snapshot feeds subtype resolution in the marshaller, the core handle
// anchors object navigation and the interpreter version documents what
// the remote side runs. The session counts as connected only once all
// three queries succeed.
func (s *Session) bootstrap(ctx context.Context) error {
	enums, err := s.fetchEnums(ctx)
	if err != nil {
		return err
	}
	s.objs.SetEnums(enums)

	core, err := s.fetchCore(ctx)
	if err != nil {
		return err
	}

	version, err := s.fetchPythonVersion(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.enums = enums
	s.core = core
	s.pythonVersion = version
	s.connected = true
	s.mu.Unlock()

	s.log.Info("session established",
		logging.FieldTarget, s.client.Target(),
		logging.String("cei_home", s.ceiHome),
		logging.String("suffix", s.suffix),
		logging.Int("enums", len(enums)))
	return nil
}

func (s *Session) fetchEnums(ctx context.Context) (map[string]int64, error) {
	value, err := s.Cmd(ctx, enumSnapshotCommand)
	if err != nil {
		return nil, err
	}
	dict, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: enum snapshot came back as %T", ErrUnexpectedReply, value)
	}
	enums := make(map[string]int64, len(dict))
	for name, raw := range dict {
		// Dunder names are interpreter plumbing, except for the
		// object id attribute which the object API relies on.
		if strings.HasPrefix(name, "__") && name != "__OBJID__" {
			continue
		}
		if n, ok := raw.(int64); ok {
			enums[name] = n
		}
	}
	return enums, nil
}

func (s *Session) fetchCore(ctx context.Context) (*ensobj.Handle, error) {
	value, err := s.Cmd(ctx, "ensight.objs.core")
	if err != nil {
		return nil, err
	}
	core, ok := value.(*ensobj.Handle)
	if !ok {
		return nil, fmt.Errorf("%w: core came back as %T", ErrUnexpectedReply, value)
	}
	return core, nil
}

func (s *Session) fetchPythonVersion(ctx context.Context) ([]string, error) {
	if err := s.CmdExec(ctx, "import platform"); err != nil {
		return nil, err
	}
	value, err := s.Cmd(ctx, "platform.python_version_tuple()")
	if err != nil {
		return nil, err
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: interpreter version came back as %T", ErrUnexpectedReply, value)
	}
	version := make([]string, 0, len(items))
	for _, item := range items {
		part, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: interpreter version holds %T", ErrUnexpectedReply, item)
		}
		version = append(version, part)
	}
	return version, nil
}

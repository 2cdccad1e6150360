package session

import (
	"context"
	"fmt"
	"sort"

	"goensight/internal/ensobj"
	"goensight/internal/pylit"
)

// defaultRepresentation is how parts are displayed when the loader is
// not told otherwise.
const defaultRepresentation = "3D_feature_2D_full"

// LoadDataOptions describes a dataset load. Only DataFile is
// required.
type LoadDataOptions struct {
	// DataFile is the dataset to load.
	DataFile string
	// ResultFile carries the second file of a dual file dataset.
	ResultFile string
	// FileFormat names the reader to use. Empty asks the engine to
	// detect one.
	FileFormat string
	// ReaderOptions holds reader specific option value pairs.
	ReaderOptions map[string]any
	// NewCase loads into a fresh case instead of replacing the
	// current one.
	NewCase bool
	// Representation overrides the default part representation.
	Representation string
}

// LoadData loads a dataset into the engine, replacing whatever the
// target case holds. The sequence mirrors what the engine's own file
// dialog drives: normalize case handling, pick or verify the reader,
// then issue the load commands, each of which must report success.
func (s *Session) LoadData(ctx context.Context, opts LoadDataOptions) error {
	if opts.DataFile == "" {
		return fmt.Errorf("%w: no data file named", ErrLoadFailed)
	}
	representation := opts.Representation
	if representation == "" {
		representation = defaultRepresentation
	}

	product, err := s.cmdString(ctx, "ensight.version('product').lower()")
	if err != nil {
		return err
	}
	// EnVision only supports replacing the whole dataset.
	if product == "envision" {
		return s.runLoadCommand(ctx, fmt.Sprintf(`ensight.data.replace(r"""%s""")`, opts.DataFile))
	}

	for _, command := range []string{
		`ensight.case.link_modelparts_byname("OFF")`,
		`ensight.case.create_viewport("OFF")`,
		`ensight.case.apply_context("OFF")`,
		`ensight.case.reflect_model_in("'none'")`,
	} {
		if err := s.CmdExec(ctx, command); err != nil {
			return err
		}
	}

	if err := s.prepareCase(ctx, opts.NewCase); err != nil {
		return err
	}

	format := opts.FileFormat
	if format == "" {
		command := fmt.Sprintf(`ensight.objs.core.CURRENTCASE[0].queryfileformat(r"""%s""")["reader"]`, opts.DataFile)
		format, err = s.cmdString(ctx, command)
		if err != nil {
			return fmt.Errorf("%w: cannot determine file format for %s", ErrLoadFailed, opts.DataFile)
		}
	}

	commands := []string{
		"ensight.part.select_default()",
		"ensight.part.modify_begin()",
		fmt.Sprintf(`ensight.part.elt_representation("%s")`, representation),
		"ensight.part.modify_end()",
		`ensight.data.binary_files_are("native")`,
		fmt.Sprintf(`ensight.data.format("%s")`, format),
	}
	readerOptions, err := readerOptionCommands(opts.ReaderOptions)
	if err != nil {
		return err
	}
	commands = append(commands, readerOptions...)
	if opts.ResultFile != "" {
		commands = append(commands, fmt.Sprintf(`ensight.data.result(r"""%s""")`, opts.ResultFile))
	}
	commands = append(commands,
		"ensight.data.shift_time(1.000000, 0.000000, 0.000000)",
		`ensight.solution_time.monitor_for_new_steps("off")`,
		fmt.Sprintf(`ensight.data.replace(r"""%s""")`, opts.DataFile),
	)
	for _, command := range commands {
		if err := s.runLoadCommand(ctx, command); err != nil {
			return err
		}
	}
	return nil
}

// prepareCase selects the case the load lands in: a fresh inactive
// case when newCase is set, otherwise a replace of the current one.
func (s *Session) prepareCase(ctx context.Context, newCase bool) error {
	if newCase {
		name, err := s.inactiveCaseName(ctx)
		if err != nil {
			return err
		}
		if err := s.CmdExec(ctx, fmt.Sprintf(`ensight.case.add("%s")`, name)); err != nil {
			return err
		}
		return s.CmdExec(ctx, fmt.Sprintf(`ensight.case.select("%s")`, name))
	}

	name, err := s.cmdString(ctx, "ensight.objs.core.CURRENTCASE[0].DESCRIPTION")
	if err != nil {
		return err
	}
	if err := s.CmdExec(ctx, fmt.Sprintf(`ensight.case.replace("%s", "%s")`, name, name)); err != nil {
		return err
	}
	return s.CmdExec(ctx, fmt.Sprintf(`ensight.case.select("%s")`, name))
}

// inactiveCaseName asks the engine for the first case slot not
// currently in use.
func (s *Session) inactiveCaseName(ctx context.Context) (string, error) {
	value, err := s.Cmd(ctx, "[c.DESCRIPTION for c in ensight.objs.core.CASES if c.ACTIVE == 0]")
	if err != nil {
		return "", err
	}
	names, ok := value.(ensobj.ObjList)
	if !ok {
		return "", fmt.Errorf("%w: case listing came back as %T", ErrUnexpectedReply, value)
	}
	for _, raw := range names {
		if name, ok := raw.(string); ok {
			return name, nil
		}
	}
	return "", ErrNoAvailableCase
}

// readerOptionCommands renders reader options into the option string
// form the data reader expects, one command per pair. Keys are sorted
// so the command sequence is reproducible.
func readerOptionCommands(options map[string]any) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	commands := make([]string, 0, len(keys))
	for _, key := range keys {
		keyRepr, err := pylit.Format(key)
		if err != nil {
			return nil, fmt.Errorf("%w: reader option %q: %v", ErrLoadFailed, key, err)
		}
		valueRepr, err := pylit.Format(options[key])
		if err != nil {
			return nil, fmt.Errorf("%w: reader option %q: %v", ErrLoadFailed, key, err)
		}
		commands = append(commands, fmt.Sprintf(`ensight.data.reader_option("%s %s")`, keyRepr, valueRepr))
	}
	return commands, nil
}

// runLoadCommand issues one load step, treating any nonzero status as
// a failed load.
func (s *Session) runLoadCommand(ctx context.Context, command string) error {
	value, err := s.Cmd(ctx, command)
	if err != nil {
		return err
	}
	if status, ok := value.(int64); !ok || status != 0 {
		return fmt.Errorf("%w: %s", ErrLoadFailed, command)
	}
	return nil
}

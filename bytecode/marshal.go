package bytecode

import (
	"bytes"
	"fmt"

	"github.com/vexra/snapjs/op"
)

// Marshal converts a compiled Code tree into the on-disk snapshot form
// described by this module's wire format: a fixed SnapshotInfo/GlobalInfo
// header, the filename and source of the root block, a deduplicated
// literal table, and one record per code block in pre-order index order.
//
// This is the reference-rewriting half of the codec: every *Function
// constant (a raw Go pointer to a nested Code block) is rewritten to a
// code-block index, and global/local/env names, parameter names, non-empty
// block and function names, and string constants are rewritten to indices
// into the literal table. Block IDs, function IDs, rest-parameter names and
// each block's own source and filename are written inline.
func Marshal(code *Code) ([]byte, error) {
	if code == nil {
		return nil, fmt.Errorf("bytecode: cannot marshal nil code")
	}

	codes := code.Flatten()
	indexOf := make(map[*Code]int, len(codes))
	for i, c := range codes {
		indexOf[c] = i
	}

	interner := newLiteralInterner()
	for _, c := range codes {
		internCodeStrings(interner, c)
	}

	var buf bytes.Buffer
	bw := newByteWriter(&buf)

	bw.u32(snapshotMagic)
	bw.u32(snapshotVersion)

	bw.u32(uint32(len(codes)))
	bw.u32(uint32(interner.len()))

	bw.str(code.Filename())
	bw.str(code.Source())

	for _, s := range interner.ordered() {
		bw.str(s)
	}

	for _, c := range codes {
		if err := writeCodeRecord(bw, c, indexOf, interner, code.GlobalCount()); err != nil {
			return nil, err
		}
	}

	if bw.err != nil {
		return nil, fmt.Errorf("bytecode: marshal failed: %w", bw.err)
	}
	return buf.Bytes(), nil
}

// Unmarshal is the inverse of Marshal. It performs a two-phase load: every
// code-block record is decoded first, in index order, and the records are
// then built in reverse pre-order, so that by the
// time a parent record is turned into an immutable *Code, every child index
// and function-code index it references already points at a fully built
// *Code. This relies on the invariant that a pre-order walk always assigns
// a child a larger index than its parent, so processing indices from N-1
// down to 0 always builds dependencies before dependents.
func Unmarshal(data []byte) (*Code, error) {
	br := newByteReader(data)

	magic := br.u32()
	version := br.u32()
	if br.err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal header: %w", br.err)
	}
	if magic != snapshotMagic {
		return nil, ErrBadMagic
	}
	if version != snapshotVersion {
		return nil, ErrBadVersion
	}

	codeCount := br.u32()
	literalCount := br.u32()

	// The top-level filename/source are redundant with the root block's own
	// record (every code block carries its own Filename/Source), but are
	// read here to keep the cursor aligned with what Marshal wrote.
	_ = br.str()
	_ = br.str()

	literals := make([]string, literalCount)
	for i := range literals {
		literals[i] = br.str()
	}
	if br.err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal global info: %w", br.err)
	}

	defs := make([]*codeRecord, codeCount)
	for i := range defs {
		def, err := readCodeRecord(br, literals)
		if err != nil {
			return nil, fmt.Errorf("bytecode: unmarshal code block %d: %w", i, err)
		}
		defs[i] = def
	}
	if br.err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal code blocks: %w", br.err)
	}

	rootGlobalCount := 0
	if len(defs) > 0 {
		rootGlobalCount = defs[0].globalCount
	}

	codes := make([]*Code, len(defs))
	for i := len(defs) - 1; i >= 0; i-- {
		c, err := buildCode(defs[i], codes, literals, rootGlobalCount)
		if err != nil {
			return nil, fmt.Errorf("bytecode: build code block %d: %w", i, err)
		}
		codes[i] = c
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("bytecode: snapshot contains no code blocks")
	}
	return codes[0], nil
}

// literalInterner assigns a stable, first-seen-order index to each distinct
// string. It is scoped to a single Marshal call; there is no package-level
// mutable interner state.
type literalInterner struct {
	index   map[string]int
	strings []string
}

func newLiteralInterner() *literalInterner {
	return &literalInterner{index: make(map[string]int)}
}

func (li *literalInterner) intern(s string) int {
	if idx, ok := li.index[s]; ok {
		return idx
	}
	idx := len(li.strings)
	li.index[s] = idx
	li.strings = append(li.strings, s)
	return idx
}

func (li *literalInterner) len() int {
	return len(li.strings)
}

func (li *literalInterner) ordered() []string {
	return li.strings
}

// internCodeStrings interns every string this code block statically
// references: global/local/env names, its own name, and (recursively,
// through its constant pool) function parameter names, rest-parameter
// names, and string constants. In this instruction encoding, the strings
// an operand resolves through live in Code.globalNames/localNames rather
// than inline in the bytecode stream, so interning walks those tables
// instead of the raw instructions.
func internCodeStrings(li *literalInterner, c *Code) {
	if c.Name() != "" {
		li.intern(c.Name())
	}
	for i := 0; i < c.GlobalNameCount(); i++ {
		li.intern(c.GlobalNameAt(i))
	}
	for i := 0; i < c.LocalNameCount(); i++ {
		li.intern(c.LocalNameAt(i))
	}
	for _, k := range c.EnvKeys() {
		li.intern(k)
	}
	for i := 0; i < c.ConstantCount(); i++ {
		internConstantStrings(li, c.ConstantAt(i))
	}
}

func internConstantStrings(li *literalInterner, v any) {
	switch val := v.(type) {
	case string:
		li.intern(val)
	case *Function:
		if val.Name() != "" {
			li.intern(val.Name())
		}
		for i := 0; i < val.ParameterCount(); i++ {
			li.intern(val.Parameter(i))
		}
		if val.RestParam() != "" {
			li.intern(val.RestParam())
		}
		for i := 0; i < val.DefaultCount(); i++ {
			internConstantStrings(li, val.Default(i))
		}
	}
}

// codeRecord is the decoded-but-not-yet-linked form of one code block,
// used as the intermediate step of the two-phase load.
type codeRecord struct {
	id           string
	name         string
	hasName      bool
	isNamed      bool
	functionID   string
	hasFuncID    bool
	childIndices []int
	instructions []op.Code
	constants    []constantRecord
	source       string
	filename     string
	hasFilename  bool
	locations    []SourceLocation
	maxCallArgs  int
	localCount   int
	globalCount  int
	globalNames  []string
	localNames   []string
	envKeys      []string
	handlers     []ExceptionHandler
}

// constantRecord is the decoded-but-not-yet-linked form of one constant
// pool entry. Function constants carry a code index that is resolved once
// every codeRecord has been read (see buildCode).
type constantRecord struct {
	tag       byte
	boolVal   bool
	intVal    int64
	floatVal  float64
	strVal    string
	fn        *functionRecord
}

type functionRecord struct {
	id           string
	name         string
	parameters   []string
	defaults     []constantRecord
	restParam    string
	hasCode      bool
	codeIndex    int
}

// writeCodeRecord serializes one code block. Before writing anything it
// consults op.Operands (via ValidateOperandBounds) to reject a block whose
// instruction stream references an out-of-range constant, local, global, or
// jump target, rather than writing a snapshot that would fail once loaded.
func writeCodeRecord(bw *byteWriter, c *Code, indexOf map[*Code]int, li *literalInterner, globalCount int) error {
	if err := ValidateOperandBounds(c, globalCount); err != nil {
		return fmt.Errorf("bytecode: marshal: %w", err)
	}

	bw.str(c.ID())

	bw.bool(c.IsNamed())
	hasName := c.Name() != ""
	bw.bool(hasName)
	if hasName {
		bw.u32(uint32(li.intern(c.Name())))
	}

	bw.bool(c.FunctionID() != "")
	bw.str(c.FunctionID())

	bw.u32(uint32(c.ChildCount()))
	for i := 0; i < c.ChildCount(); i++ {
		child := c.ChildAt(i)
		idx, ok := indexOf[child]
		if !ok {
			return fmt.Errorf("bytecode: %w: child of block %q not found in index", ErrCodeIndexOutOfRange, c.ID())
		}
		bw.u32(uint32(idx))
	}

	bw.u32(uint32(c.InstructionCount()))
	for i := 0; i < c.InstructionCount(); i++ {
		bw.u16(uint16(c.InstructionAt(i)))
	}

	bw.u32(uint32(c.ConstantCount()))
	for i := 0; i < c.ConstantCount(); i++ {
		if err := writeConstant(bw, c.ConstantAt(i), indexOf, li); err != nil {
			return err
		}
	}

	bw.str(c.Source())

	bw.bool(c.Filename() != "")
	bw.str(c.Filename())

	bw.u32(uint32(c.LocationCount()))
	for i := 0; i < c.LocationCount(); i++ {
		loc := c.LocationAt(i)
		bw.u32(uint32(loc.Line))
		bw.u32(uint32(loc.Column))
		bw.u32(uint32(loc.EndColumn))
	}

	bw.u32(uint32(c.MaxCallArgs()))
	bw.u32(uint32(c.LocalCount()))
	bw.u32(uint32(c.GlobalCount()))

	bw.u32(uint32(c.GlobalNameCount()))
	for i := 0; i < c.GlobalNameCount(); i++ {
		bw.u32(uint32(li.intern(c.GlobalNameAt(i))))
	}

	bw.u32(uint32(c.LocalNameCount()))
	for i := 0; i < c.LocalNameCount(); i++ {
		bw.u32(uint32(li.intern(c.LocalNameAt(i))))
	}

	envKeys := c.EnvKeys()
	bw.u32(uint32(len(envKeys)))
	for _, k := range envKeys {
		bw.u32(uint32(li.intern(k)))
	}

	bw.u32(uint32(c.ExceptionHandlerCount()))
	for i := 0; i < c.ExceptionHandlerCount(); i++ {
		h := c.ExceptionHandlerAt(i)
		bw.u32(uint32(h.TryStart))
		bw.u32(uint32(h.TryEnd))
		bw.u32(uint32(h.CatchStart))
		bw.u32(uint32(h.FinallyStart))
		bw.i64(int64(h.CatchVarIdx))
	}

	return nil
}

func writeConstant(bw *byteWriter, v any, indexOf map[*Code]int, li *literalInterner) error {
	switch val := v.(type) {
	case nil:
		bw.u8(tagNil)
	case bool:
		if val {
			bw.u8(tagTrue)
		} else {
			bw.u8(tagFalse)
		}
	case int:
		bw.u8(tagInt)
		bw.i64(int64(val))
	case int64:
		bw.u8(tagInt)
		bw.i64(val)
	case float32:
		bw.u8(tagFloat)
		bw.f64(float64(val))
	case float64:
		bw.u8(tagFloat)
		bw.f64(val)
	case string:
		bw.u8(tagString)
		bw.u32(uint32(li.intern(val)))
	case *Function:
		bw.u8(tagFunction)
		bw.str(val.ID())
		bw.bool(val.Name() != "")
		if val.Name() != "" {
			bw.u32(uint32(li.intern(val.Name())))
		}
		bw.u32(uint32(val.ParameterCount()))
		for i := 0; i < val.ParameterCount(); i++ {
			bw.u32(uint32(li.intern(val.Parameter(i))))
		}
		bw.u32(uint32(val.DefaultCount()))
		for i := 0; i < val.DefaultCount(); i++ {
			if err := writeConstant(bw, val.Default(i), indexOf, li); err != nil {
				return err
			}
		}
		bw.bool(val.RestParam() != "")
		bw.str(val.RestParam())
		if val.Code() != nil {
			idx, ok := indexOf[val.Code()]
			if !ok {
				return fmt.Errorf("bytecode: %w: function %q's code not found in index", ErrCodeIndexOutOfRange, val.ID())
			}
			bw.bool(true)
			bw.u32(uint32(idx))
		} else {
			bw.bool(false)
		}
	default:
		return fmt.Errorf("bytecode: cannot marshal constant of type %T", v)
	}
	return nil
}

func readCodeRecord(br *byteReader, literals []string) (*codeRecord, error) {
	def := &codeRecord{}
	def.id = br.str()

	def.isNamed = br.boolean()
	hasName := br.boolean()
	def.hasName = hasName
	if hasName {
		idx := br.u32()
		name, err := lookupLiteral(literals, idx)
		if err != nil {
			return nil, err
		}
		def.name = name
	}

	def.hasFuncID = br.boolean()
	def.functionID = br.str()

	childCount := br.u32()
	def.childIndices = make([]int, childCount)
	for i := range def.childIndices {
		def.childIndices[i] = int(br.u32())
	}

	instrCount := br.u32()
	def.instructions = make([]op.Code, instrCount)
	for i := range def.instructions {
		def.instructions[i] = op.Code(br.u16())
	}

	constCount := br.u32()
	def.constants = make([]constantRecord, constCount)
	for i := range def.constants {
		c, err := readConstant(br, literals)
		if err != nil {
			return nil, err
		}
		def.constants[i] = c
	}

	def.source = br.str()

	def.hasFilename = br.boolean()
	def.filename = br.str()

	locCount := br.u32()
	def.locations = make([]SourceLocation, locCount)
	for i := range def.locations {
		line := int(br.u32())
		col := int(br.u32())
		endCol := int(br.u32())
		def.locations[i] = SourceLocation{Line: line, Column: col, EndColumn: endCol}
	}

	def.maxCallArgs = int(br.u32())
	def.localCount = int(br.u32())
	def.globalCount = int(br.u32())

	globalNameCount := br.u32()
	def.globalNames = make([]string, globalNameCount)
	for i := range def.globalNames {
		idx := br.u32()
		name, err := lookupLiteral(literals, idx)
		if err != nil {
			return nil, err
		}
		def.globalNames[i] = name
	}

	localNameCount := br.u32()
	def.localNames = make([]string, localNameCount)
	for i := range def.localNames {
		idx := br.u32()
		name, err := lookupLiteral(literals, idx)
		if err != nil {
			return nil, err
		}
		def.localNames[i] = name
	}

	envKeyCount := br.u32()
	def.envKeys = make([]string, envKeyCount)
	for i := range def.envKeys {
		idx := br.u32()
		name, err := lookupLiteral(literals, idx)
		if err != nil {
			return nil, err
		}
		def.envKeys[i] = name
	}

	handlerCount := br.u32()
	def.handlers = make([]ExceptionHandler, handlerCount)
	for i := range def.handlers {
		def.handlers[i] = ExceptionHandler{
			TryStart:     int(br.u32()),
			TryEnd:       int(br.u32()),
			CatchStart:   int(br.u32()),
			FinallyStart: int(br.u32()),
			CatchVarIdx:  int(br.i64()),
		}
	}

	if br.err != nil {
		return nil, br.err
	}
	return def, nil
}

func readConstant(br *byteReader, literals []string) (constantRecord, error) {
	tag := br.u8()
	switch tag {
	case tagNil:
		return constantRecord{tag: tag}, nil
	case tagFalse:
		return constantRecord{tag: tag, boolVal: false}, nil
	case tagTrue:
		return constantRecord{tag: tag, boolVal: true}, nil
	case tagInt:
		return constantRecord{tag: tag, intVal: br.i64()}, nil
	case tagFloat:
		return constantRecord{tag: tag, floatVal: br.f64()}, nil
	case tagString:
		idx := br.u32()
		s, err := lookupLiteral(literals, idx)
		if err != nil {
			return constantRecord{}, err
		}
		return constantRecord{tag: tag, strVal: s}, nil
	case tagFunction:
		fn := &functionRecord{}
		fn.id = br.str()
		hasName := br.boolean()
		if hasName {
			idx := br.u32()
			name, err := lookupLiteral(literals, idx)
			if err != nil {
				return constantRecord{}, err
			}
			fn.name = name
		}
		paramCount := br.u32()
		fn.parameters = make([]string, paramCount)
		for i := range fn.parameters {
			idx := br.u32()
			name, err := lookupLiteral(literals, idx)
			if err != nil {
				return constantRecord{}, err
			}
			fn.parameters[i] = name
		}
		defaultCount := br.u32()
		fn.defaults = make([]constantRecord, defaultCount)
		for i := range fn.defaults {
			d, err := readConstant(br, literals)
			if err != nil {
				return constantRecord{}, err
			}
			fn.defaults[i] = d
		}
		hasRest := br.boolean()
		rest := br.str()
		if hasRest {
			fn.restParam = rest
		}
		fn.hasCode = br.boolean()
		if fn.hasCode {
			fn.codeIndex = int(br.u32())
		}
		if br.err != nil {
			return constantRecord{}, br.err
		}
		return constantRecord{tag: tag, fn: fn}, nil
	default:
		return constantRecord{}, fmt.Errorf("%w: %d", ErrUnknownConstantTag, tag)
	}
}

func lookupLiteral(literals []string, idx uint32) (string, error) {
	if int(idx) >= len(literals) {
		return "", fmt.Errorf("%w: index %d, table size %d", ErrLiteralIndexOutOfRange, idx, len(literals))
	}
	return literals[idx], nil
}

func buildConstant(rec constantRecord, codes []*Code) (any, error) {
	switch rec.tag {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt:
		return rec.intVal, nil
	case tagFloat:
		return rec.floatVal, nil
	case tagString:
		return rec.strVal, nil
	case tagFunction:
		defaults := make([]any, len(rec.fn.defaults))
		for i, d := range rec.fn.defaults {
			v, err := buildConstant(d, codes)
			if err != nil {
				return nil, err
			}
			defaults[i] = v
		}
		var fnCode *Code
		if rec.fn.hasCode {
			if rec.fn.codeIndex < 0 || rec.fn.codeIndex >= len(codes) {
				return nil, fmt.Errorf("%w: function %q references code %d", ErrCodeIndexOutOfRange, rec.fn.id, rec.fn.codeIndex)
			}
			fnCode = codes[rec.fn.codeIndex]
		}
		return NewFunction(FunctionParams{
			ID:         rec.fn.id,
			Name:       rec.fn.name,
			Parameters: rec.fn.parameters,
			Defaults:   defaults,
			RestParam:  rec.fn.restParam,
			Code:       fnCode,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownConstantTag, rec.tag)
	}
}

// buildCode assembles one immutable *Code from its decoded record. Once
// built, it is checked through op.Operands (via ValidateOperandBounds) the
// same way writeCodeRecord checks it before writing, so a hand-edited or
// truncated snapshot is rejected here rather than trusted to the VM.
func buildCode(def *codeRecord, codes []*Code, literals []string, rootGlobalCount int) (*Code, error) {
	var children []*Code
	if len(def.childIndices) > 0 {
		children = make([]*Code, len(def.childIndices))
		for i, idx := range def.childIndices {
			if idx < 0 || idx >= len(codes) || codes[idx] == nil {
				return nil, fmt.Errorf("%w: block %q references child %d before it was built", ErrCodeIndexOutOfRange, def.id, idx)
			}
			children[i] = codes[idx]
		}
	}

	constants := make([]any, len(def.constants))
	for i, rec := range def.constants {
		v, err := buildConstant(rec, codes)
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}

	built := NewCode(CodeParams{
		ID:                def.id,
		Name:              def.name,
		IsNamed:           def.isNamed,
		Children:          children,
		Instructions:      def.instructions,
		Constants:         constants,
		Source:            def.source,
		Filename:          def.filename,
		FunctionID:        def.functionID,
		Locations:         def.locations,
		MaxCallArgs:       def.maxCallArgs,
		LocalCount:        def.localCount,
		GlobalCount:       def.globalCount,
		GlobalNames:       def.globalNames,
		LocalNames:        def.localNames,
		EnvKeys:           def.envKeys,
		ExceptionHandlers: def.handlers,
	})

	if err := ValidateOperandBounds(built, rootGlobalCount); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	return built, nil
}

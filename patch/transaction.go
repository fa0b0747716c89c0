package patch

import (
	"fmt"
	"log/slog"

	"github.com/beevik/etree"

	"github.com/brandforge/brandforge/ooxml"
)

// Policy selects how a transaction treats operation failures.
type Policy string

// Failure policies. Strict is the default: the first failing operation
// rolls back the whole transaction. Best-effort records failures, skips
// them, and commits whatever succeeded. Malformed parts and ambiguous
// single-target XPaths are fatal under both policies.
const (
	PolicyStrict     Policy = "strict"
	PolicyBestEffort Policy = "best-effort"
)

// State is the transaction lifecycle: Open -> Applying -> terminal.
type State string

// Transaction states. Committed and RolledBack are terminal; no operation
// is accepted once the transaction leaves Applying.
const (
	StateOpen       State = "open"
	StateApplying   State = "applying"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled-back"
)

// OpResult records the outcome of one operation for reporting.
type OpResult struct {
	// Index is the operation's position across all specs applied to this
	// transaction.
	Index int
	// Part is the part (or expanded glob match) the operation targeted.
	Part string
	// XPath is the operation's target expression.
	XPath string
	// Op is the operation kind.
	Op Kind
	// Err is nil for successes; for best-effort failures it is the *Error
	// that caused the skip.
	Err error
}

// Result aggregates a committed transaction's outcomes.
type Result struct {
	Applied []OpResult
	Failed  []OpResult
}

// Transaction owns the working XML state for one patch run over a package.
// Part DOMs are cloned on first touch; the package bytes are untouched
// until Commit, so Rollback simply discards the working copies.
type Transaction struct {
	pkg    *ooxml.Package
	tokens map[string]any
	policy Policy
	logger *slog.Logger

	state     State
	working   map[string]*etree.Document
	relValues map[string]string
	opIndex   int
	result    Result
}

// Begin opens a transaction over the package. The token map must be fully
// resolved; it is read-only here and may be shared across transactions.
func Begin(pkg *ooxml.Package, tokens map[string]any, policy Policy, logger *slog.Logger) *Transaction {
	if policy == "" {
		policy = PolicyStrict
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transaction{
		pkg:       pkg,
		tokens:    tokens,
		policy:    policy,
		logger:    logger,
		state:     StateOpen,
		working:   make(map[string]*etree.Document),
		relValues: make(map[string]string),
	}
}

// State returns the transaction's lifecycle state.
func (t *Transaction) State() State { return t.state }

// Apply runs every operation of the spec in order. Under the strict policy
// the first failure rolls the transaction back and returns the error; under
// best-effort, non-fatal failures are recorded in the result and skipped.
func (t *Transaction) Apply(spec *Spec) error {
	switch t.state {
	case StateOpen:
		t.state = StateApplying
	case StateApplying:
	default:
		return &Error{ErrKind: KindInvalidState, Msg: fmt.Sprintf("transaction is %s", t.state)}
	}

	for i := range spec.Ops {
		op := &spec.Ops[i]
		idx := t.opIndex
		t.opIndex++

		err := t.applyOp(spec, op, idx)
		if err == nil {
			continue
		}

		var perr *Error
		if e, ok := err.(*Error); ok {
			perr = e
		} else {
			perr = &Error{ErrKind: KindInvalidPayload, Part: op.Part, OpIndex: idx, XPath: op.XPath, Err: err}
		}

		if t.policy == PolicyStrict || perr.Fatal() {
			t.Rollback()
			return perr
		}

		t.logger.Warn("patch operation skipped",
			slog.Int("op", idx),
			slog.String("part", op.Part),
			slog.String("kind", string(perr.ErrKind)),
			slog.String("error", perr.Error()))
		t.result.Failed = append(t.result.Failed, OpResult{Index: idx, Part: op.Part, XPath: op.XPath, Op: op.Op, Err: perr})
	}
	return nil
}

// Commit serializes every working DOM back into its part and returns the
// aggregated result. The transaction becomes terminal.
func (t *Transaction) Commit() (*Result, error) {
	if t.state != StateApplying && t.state != StateOpen {
		return nil, &Error{ErrKind: KindInvalidState, Msg: fmt.Sprintf("transaction is %s", t.state)}
	}
	for name, doc := range t.working {
		data, err := doc.WriteToBytes()
		if err != nil {
			t.Rollback()
			return nil, fmt.Errorf("serialize part %s: %w", name, err)
		}
		if part := t.pkg.Part(name); part != nil {
			part.SetBytes(data)
		} else {
			t.pkg.AddPart(name, data)
		}
	}
	t.state = StateCommitted
	return &t.result, nil
}

// Rollback discards all working copies. The package is left exactly as it
// was when the transaction began.
func (t *Transaction) Rollback() {
	t.working = nil
	t.state = StateRolledBack
}

// opStage buffers one operation's mutations. A glob-expanded operation that
// fails part-way through its matches discards the whole stage, so a skipped
// operation never leaves changes on earlier-matched parts.
type opStage struct {
	docs map[string]*etree.Document
	rels map[string]string
}

func newOpStage() *opStage {
	return &opStage{
		docs: make(map[string]*etree.Document),
		rels: make(map[string]string),
	}
}

// doc returns the stage's DOM for a part: a copy of the transaction's
// working document, or a fresh parse of the part on first touch.
func (s *opStage) doc(t *Transaction, name string, idx int) (*etree.Document, error) {
	if doc, ok := s.docs[name]; ok {
		return doc, nil
	}
	if doc, ok := t.working[name]; ok {
		staged := doc.Copy()
		s.docs[name] = staged
		return staged, nil
	}
	part := t.pkg.Part(name)
	if part == nil {
		return nil, &Error{ErrKind: KindPartNotFound, Part: name, OpIndex: idx}
	}
	doc, err := part.Document()
	if err != nil {
		return nil, wrapPartError(err, name, idx)
	}
	s.docs[name] = doc
	return doc, nil
}

// relsDoc is doc for companion .rels documents, which are created empty when
// the package carries none.
func (s *opStage) relsDoc(t *Transaction, name string, idx int) (*etree.Document, error) {
	if _, ok := s.docs[name]; !ok {
		if _, working := t.working[name]; !working && t.pkg.Part(name) == nil {
			s.docs[name] = ooxml.NewRelationshipsDocument()
			return s.docs[name], nil
		}
	}
	return s.doc(t, name, idx)
}

// commit installs the stage into the transaction's working state.
func (s *opStage) commit(t *Transaction) {
	for name, doc := range s.docs {
		t.working[name] = doc
	}
	for as, id := range s.rels {
		t.relValues[as] = id
	}
}

// applyOp applies one operation, possibly across several glob-matched parts.
// The operation is atomic over its matches: all parts take the mutation, or
// none do.
func (t *Transaction) applyOp(spec *Spec, op *Operation, idx int) error {
	names, err := matchParts(t.pkg, op.Part)
	if err != nil {
		return &Error{ErrKind: KindPartNotFound, Part: op.Part, OpIndex: idx, Err: err}
	}
	if len(names) == 0 {
		return &Error{ErrKind: KindPartNotFound, Part: op.Part, OpIndex: idx, Msg: "no part matches selector"}
	}

	stage := newOpStage()
	for _, name := range names {
		if op.Op == KindRelsAdd {
			if err := t.applyRelsAdd(stage, op, name, idx); err != nil {
				return err
			}
			continue
		}
		if err := t.applyToPart(stage, spec, op, name, idx); err != nil {
			return err
		}
	}
	stage.commit(t)

	t.result.Applied = append(t.result.Applied, OpResult{Index: idx, Part: op.Part, XPath: op.XPath, Op: op.Op})
	return nil
}

func (t *Transaction) applyToPart(stage *opStage, spec *Spec, op *Operation, name string, idx int) error {
	doc, err := stage.doc(t, name, idx)
	if err != nil {
		return err
	}

	if err := checkNamespaces(spec, op, doc, name, idx); err != nil {
		return err
	}

	path, err := etree.CompilePath(op.XPath)
	if err != nil {
		return &Error{ErrKind: KindXPathSyntax, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
	}

	matches := doc.FindElementsPath(path)
	if len(matches) == 0 {
		if op.IfAbsent {
			t.logger.Debug("insert target absent, skipping",
				slog.Int("op", idx), slog.String("part", name), slog.String("xpath", op.XPath))
			return nil
		}
		return &Error{ErrKind: KindXPathNoMatch, Part: name, OpIndex: idx, XPath: op.XPath, Msg: "no node matches"}
	}
	if op.Single && len(matches) > 1 {
		return &Error{
			ErrKind: KindXPathAmbiguity, Part: name, OpIndex: idx, XPath: op.XPath,
			Msg: fmt.Sprintf("single-target operation matched %d nodes", len(matches)),
		}
	}

	payload, err := substitute(op.Payload, t.tokens, t.relValues)
	if err != nil {
		return &Error{ErrKind: KindPayloadToken, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
	}

	switch op.Op {
	case KindSet:
		applySet(matches, op.Attribute, payload)
	case KindInsert:
		frag, err := parseFragment(payload)
		if err != nil {
			return &Error{ErrKind: KindInvalidPayload, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
		}
		if err := applyInsert(matches, op.Position, frag); err != nil {
			return &Error{ErrKind: KindInvalidPayload, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
		}
	case KindExtend:
		frags, err := parseFragments(payload)
		if err != nil {
			return &Error{ErrKind: KindInvalidPayload, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
		}
		applyExtend(matches, frags)
	case KindMerge:
		frag, err := parseFragment(payload)
		if err != nil {
			return &Error{ErrKind: KindInvalidPayload, Part: name, OpIndex: idx, XPath: op.XPath, Err: err}
		}
		applyMerge(matches, frag)
	default:
		// Spec validation rejects unknown kinds before we get here.
		return &Error{ErrKind: KindInvalidState, Part: name, OpIndex: idx, Msg: fmt.Sprintf("unhandled kind %q", op.Op)}
	}
	return nil
}

// applyRelsAdd amends the companion .rels document of the matched part,
// creating it if the package has none, and exposes the generated ID as
// {rels.<as>} to later operations.
func (t *Transaction) applyRelsAdd(stage *opStage, op *Operation, name string, idx int) error {
	relsName := ooxml.RelsPath(name)

	doc, err := stage.relsDoc(t, relsName, idx)
	if err != nil {
		return err
	}

	relType, err := substitute(op.Rel.Type, t.tokens, t.relValues)
	if err != nil {
		return &Error{ErrKind: KindPayloadToken, Part: relsName, OpIndex: idx, Err: err}
	}
	target, err := substitute(op.Rel.Target, t.tokens, t.relValues)
	if err != nil {
		return &Error{ErrKind: KindPayloadToken, Part: relsName, OpIndex: idx, Err: err}
	}

	id, err := ooxml.AddRelationship(doc, relType, target, op.Rel.Mode)
	if err != nil {
		return &Error{ErrKind: KindMalformedPart, Part: relsName, OpIndex: idx, Err: err}
	}
	if op.Rel.As != "" {
		stage.rels[op.Rel.As] = id
	}

	t.logger.Debug("relationship added",
		slog.Int("op", idx), slog.String("part", relsName), slog.String("id", id))
	return nil
}

// checkNamespaces verifies every prefix the XPath uses is declared either in
// the working document (declarations added by earlier operations included)
// or in the spec's namespace block.
func checkNamespaces(spec *Spec, op *Operation, doc *etree.Document, name string, idx int) error {
	prefixes := xpathPrefixes(op.XPath)
	if len(prefixes) == 0 {
		return nil
	}
	declared := ooxml.DocumentNamespaces(doc)
	for _, p := range prefixes {
		if _, ok := declared[p]; ok {
			continue
		}
		if _, ok := spec.Namespaces[p]; ok {
			continue
		}
		return &Error{
			ErrKind: KindNamespaceResolution, Part: name, OpIndex: idx, XPath: op.XPath,
			Msg: fmt.Sprintf("prefix %q is not declared for this part", p),
		}
	}
	return nil
}

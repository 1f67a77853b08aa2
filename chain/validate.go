package chain

import (
	"fmt"
	"strings"

	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/validation"
)

const nodeKinds = "unit, ref, sequence, parallel, branch, template, select, passthrough"

// Validate checks def against its struct tags and the structural rules:
// every node sets exactly one kind, and parallel entries carry unique keys.
func Validate(def *Definition) error {
	if def == nil {
		return apperrors.InvalidDefinition("", "definition is nil")
	}
	if err := validation.Validate(def); err != nil {
		return definitionError(def.Name, err)
	}

	v := validation.New()
	for i := range def.Steps {
		checkNode(v.At(fmt.Sprintf("steps[%d]", i)), &def.Steps[i])
	}
	if appErr := v.Validate(); appErr != nil {
		return definitionError(def.Name, appErr)
	}
	return nil
}

// checkNode reports against v's path; children are checked below it.
func checkNode(v *validation.Validator, n *Node) {
	switch kinds := n.kinds(); len(kinds) {
	case 1:
	case 0:
		v.AddError("", "must set one of: "+nodeKinds)
		return
	default:
		v.AddError("", "sets more than one kind: "+strings.Join(kinds, ", "))
		return
	}

	for i := range n.Sequence {
		checkNode(v.At(fmt.Sprintf("sequence[%d]", i)), &n.Sequence[i])
	}

	keys := map[string]bool{}
	for i := range n.Parallel {
		entry := &n.Parallel[i]
		ev := v.At(fmt.Sprintf("parallel[%d]", i))
		switch {
		case entry.Key == "":
			ev.AddError("key", "is required")
		case keys[entry.Key]:
			ev.AddError("key", fmt.Sprintf("duplicate key %q", entry.Key))
		}
		keys[entry.Key] = true
		checkNode(ev, entry)
	}

	if n.Branch != nil {
		for i := range n.Branch.Cases {
			checkNode(v.At(fmt.Sprintf("branch.cases[%d]", i)), &n.Branch.Cases[i].Node)
		}
		checkNode(v.At("branch.default"), n.Branch.Default)
	}
}

// definitionError re-codes a validation failure as INVALID_DEFINITION,
// keeping the field details.
func definitionError(name string, err error) error {
	out := apperrors.InvalidDefinition(name, err.Error())
	if appErr, ok := apperrors.AsAppError(err); ok {
		out = apperrors.InvalidDefinition(name, appErr.Message).WithDetails(appErr.Details)
	}
	return out
}

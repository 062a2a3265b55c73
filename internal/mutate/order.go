package mutate

import (
	"github.com/evanofslack/adsmutate/internal/apierr"
)

const opVerify = "verify batch"

// Verify walks ops once and rejects the batch if any operation references a
// placeholder that was not defined by a strictly earlier operation, or if an
// operation is malformed for its kind. Names absent from refs are treated as
// persisted resources.
func Verify(ops []Operation, refs *ReferenceTable) error {
	if len(ops) == 0 {
		return apierr.Validationf(opVerify, "batch is empty")
	}

	defined := make(map[string]int, len(ops))
	for i, op := range ops {
		if !op.Type.Valid() {
			return apierr.Validationf(opVerify, "operation %d: unknown resource type %d", i, op.Type)
		}
		if err := verifyShape(i, op); err != nil {
			return err
		}

		targets := op.References
		if op.Name != "" {
			targets = append([]string{op.Name}, op.References...)
		}
		for _, ref := range targets {
			if ref == "" {
				return apierr.Validationf(opVerify, "operation %d (%s): empty reference", i, op)
			}
			if refs == nil || !refs.IsPlaceholder(ref) {
				continue
			}
			if _, ok := defined[ref]; !ok {
				return apierr.Validationf(opVerify, "operation %d (%s): forward reference to %s", i, op, ref)
			}
		}

		if op.Defines == "" {
			continue
		}
		if refs == nil || !refs.IsPlaceholder(op.Defines) {
			return apierr.Validationf(opVerify, "operation %d: %s was not allocated as a placeholder", i, op.Defines)
		}
		if j, ok := defined[op.Defines]; ok {
			return apierr.Validationf(opVerify, "operation %d: %s already defined by operation %d", i, op.Defines, j)
		}
		defined[op.Defines] = i
	}
	return nil
}

func verifyShape(i int, op Operation) error {
	switch op.Kind {
	case KindCreate:
		if op.Resource == nil {
			return apierr.Validationf(opVerify, "operation %d: create %s without payload", i, op.Type)
		}
		if op.Resource.ResourceType() != op.Type {
			return apierr.Validationf(opVerify, "operation %d: payload %s does not match %s", i, op.Resource.ResourceType(), op.Type)
		}
	case KindUpdate:
		if op.Resource == nil || op.Name == "" {
			return apierr.Validationf(opVerify, "operation %d: update %s needs a payload and a target", i, op.Type)
		}
		if len(op.UpdateMask) == 0 {
			return apierr.Validationf(opVerify, "operation %d: update %s has an empty field mask", i, op.Type)
		}
		if op.Defines != "" {
			return apierr.Validationf(opVerify, "operation %d: only creates may define placeholders", i)
		}
	case KindRemove:
		if op.Name == "" {
			return apierr.Validationf(opVerify, "operation %d: remove %s without target", i, op.Type)
		}
		if op.Resource != nil || op.Defines != "" {
			return apierr.Validationf(opVerify, "operation %d: remove %s carries a payload", i, op.Type)
		}
	default:
		return apierr.Validationf(opVerify, "operation %d: unknown kind %d", i, op.Kind)
	}
	return nil
}

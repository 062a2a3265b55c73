package remote

import (
	"strings"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
)

type mutateRequest struct {
	MutateOperations []map[string]wireOperation `json:"mutateOperations"`
	PartialFailure   bool                       `json:"partialFailure,omitempty"`
	ValidateOnly     bool                       `json:"validateOnly,omitempty"`
}

type wireOperation struct {
	Create     mutate.Resource `json:"create,omitempty"`
	Update     mutate.Resource `json:"update,omitempty"`
	Remove     string          `json:"remove,omitempty"`
	UpdateMask string          `json:"updateMask,omitempty"`
}

type resultName struct {
	ResourceName string `json:"resourceName"`
}

type mutateResponse struct {
	MutateOperationResponses []map[string]resultName `json:"mutateOperationResponses"`
	PartialFailureError      *apierr.Status          `json:"partialFailureError"`
}

type searchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

type searchResponse struct {
	Results       []Row  `json:"results"`
	NextPageToken string `json:"nextPageToken"`
}

type errorEnvelope struct {
	Error *apierr.Status `json:"error"`
}

// encodeOperations renders ops as the tagged-union array the mutate
// endpoint expects, one single-key object per operation.
func encodeOperations(ops []mutate.Operation) ([]map[string]wireOperation, error) {
	out := make([]map[string]wireOperation, 0, len(ops))
	for i, op := range ops {
		key := op.Type.OperationKey()
		if key == "" {
			return nil, apierr.Validationf("encode", "operation %d: unknown resource type %d", i, op.Type)
		}
		var w wireOperation
		switch op.Kind {
		case mutate.KindCreate:
			w.Create = op.Resource
		case mutate.KindUpdate:
			w.Update = op.Resource
			w.UpdateMask = fieldMask(op.UpdateMask)
		case mutate.KindRemove:
			w.Remove = op.Name
		default:
			return nil, apierr.Validationf("encode", "operation %d: unknown kind %d", i, op.Kind)
		}
		out = append(out, map[string]wireOperation{key: w})
	}
	return out, nil
}

// fieldMask converts snake_case field paths to the comma separated
// lowerCamel form used on the wire.
func fieldMask(paths []string) string {
	out := make([]string, len(paths))
	for i, p := range paths {
		segments := strings.Split(p, ".")
		for j, s := range segments {
			segments[j] = lowerCamel(s)
		}
		out[i] = strings.Join(segments, ".")
	}
	return strings.Join(out, ",")
}

func lowerCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func decodeMutateResponse(resp mutateResponse) MutateResponse {
	out := MutateResponse{Results: make([]MutateResult, len(resp.MutateOperationResponses))}
	for i, entry := range resp.MutateOperationResponses {
		for _, r := range entry {
			out.Results[i].ResourceName = r.ResourceName
		}
	}
	if st := resp.PartialFailureError; st != nil && (st.Code != 0 || len(st.Details) > 0) {
		out.PartialFailure = apierr.ParseFailures(st)
		out.PartialFailureMessage = st.Message
	}
	return out
}

package docmodel

import "encoding/json"

// EvidenceDoc is the on-disk representation of one evidence item.
type EvidenceDoc struct {
	Kind             string `json:"kind"`
	Value            string `json:"value"`
	Caption          string `json:"caption,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
}

// TestCaseMetadataDoc is the "metadata" object of a testcases/<uuid>.json file.
type TestCaseMetadataDoc struct {
	Title             string            `json:"title"`
	ExecutionDateTime string            `json:"execution_datetime"`
	Passed            *bool             `json:"passed"`
	Custom            map[string]string `json:"custom"`
}

// TestCaseDocument is the typed, order-preserving representation of a
// testcases/<uuid>.json file.
type TestCaseDocument struct {
	Schema   string              `json:"$schema,omitempty"`
	Metadata TestCaseMetadataDoc `json:"metadata"`
	Evidence []EvidenceDoc       `json:"evidence"`

	Extras Extras `json:"-"`
}

var testCaseKnownKeys = map[string]bool{
	"$schema": true, "metadata": true, "evidence": true,
}

// MarshalJSON emits known fields in schema-declared order followed by
// extras in their observed order.
func (t TestCaseDocument) MarshalJSON() ([]byte, error) {
	type known TestCaseDocument
	body, err := json.Marshal(known(t))
	if err != nil {
		return nil, err
	}
	if t.Extras.Len() == 0 {
		return body, nil
	}
	out := append([]byte(nil), body[:len(body)-1]...)
	out, err = t.Extras.appendRawObjectFields(out)
	if err != nil {
		return nil, err
	}
	return append(out, '}'), nil
}

// UnmarshalJSON decodes known fields and retains unknown top-level keys in
// Extras, in their original order.
func (t *TestCaseDocument) UnmarshalJSON(data []byte) error {
	type known TestCaseDocument
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*t = TestCaseDocument(k)

	extras, err := extractExtras(data, testCaseKnownKeys)
	if err != nil {
		return err
	}
	t.Extras = extras
	return nil
}

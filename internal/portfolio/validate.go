package portfolio

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed draft.schema.json
var draftSchema []byte

// ErrInvalidDraft 表示导入的草稿不符合 schema。
var ErrInvalidDraft = errors.New("invalid draft")

var draftSchemaLoader = gojsonschema.NewBytesLoader(draftSchema)

// ValidateDraftDocument 用内嵌 schema 校验任意已解码的文档。
func ValidateDraftDocument(doc interface{}) error {
	res, err := gojsonschema.Validate(draftSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
}

// DecodeDraftJSON 校验并解码 JSON 草稿。
func DecodeDraftJSON(data []byte) (Draft, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if err := ValidateDraftDocument(doc); err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return d, nil
}

// DecodeDraftYAML 解码 YAML 草稿，并按 JSON 形式做同样的 schema 校验。
func DecodeDraftYAML(data []byte) (Draft, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	// 经 JSON 往返一次，使 YAML 的标量类型与 JSON 校验规则一致
	normalized, err := json.Marshal(doc)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return DecodeDraftJSON(normalized)
}

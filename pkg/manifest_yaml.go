package rema

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlEditor handles Chart.yaml and pubspec.yaml style documents through
// the yaml.v3 node tree, which keeps key order and comments.
type yamlEditor struct{}

func yamlRoot(data []byte) (*yaml.Node, *yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, errors.New("YAML document is not a mapping")
	}
	return &doc, doc.Content[0], nil
}

func yamlField(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func yamlTopLevelString(data []byte, key string) (string, error) {
	_, m, err := yamlRoot(data)
	if err != nil {
		return "", err
	}
	n := yamlField(m, key)
	if n == nil {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%q field is not a scalar", key)
	}
	return n.Value, nil
}

func (yamlEditor) readVersion(_ *ManifestFile, data []byte) (string, error) {
	return yamlTopLevelString(data, "version")
}

func (yamlEditor) readName(_ *ManifestFile, data []byte) (string, error) {
	return yamlTopLevelString(data, "name")
}

func (e yamlEditor) setVersion(_ *ManifestFile, data []byte, v Version) ([]byte, error) {
	doc, m, err := yamlRoot(data)
	if err != nil {
		return nil, err
	}
	if n := yamlField(m, "version"); n != nil {
		if n.Kind != yaml.ScalarNode {
			return nil, errors.New(`"version" field is not a scalar`)
		}
		n.Value = v.String()
		n.Tag = "!!str"
	} else {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := buf.Bytes()

	got, err := e.readVersion(nil, out)
	if err != nil {
		return nil, err
	}
	if got != v.String() {
		return nil, fmt.Errorf("version field reads %q after edit, want %q", got, v)
	}
	return out, nil
}

package service

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretsync/internal/secrets"
)

// StaticTemplate renders a YAML skeleton of every static secret the
// environment requires, in the shape LoadStaticSecretsFile reads back.
// Values are null placeholders; descriptions are carried over so the
// operator filling the template knows what each secret is.
func (s *Service) StaticTemplate(environment string) (string, error) {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return "", err
	}

	applications := &yaml.Node{Kind: yaml.MappingNode}
	for _, application := range env.AllApplications() {
		entries := &yaml.Node{Kind: yaml.MappingNode}
		for _, decl := range application.StaticSecrets() {
			entries.Content = append(entries.Content,
				scalarNode(decl.Key),
				templateEntry(decl.Description))
		}
		if len(entries.Content) == 0 {
			continue
		}
		applications.Content = append(applications.Content,
			scalarNode(application.Name), entries)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalarNode("applications"), applications)
	root.Content = append(root.Content,
		scalarNode(secrets.PullSecretApplication),
		&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			scalarNode("registries"),
			{Kind: yaml.MappingNode, Style: yaml.FlowStyle},
		}})

	var out strings.Builder
	encoder := yaml.NewEncoder(&out)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// templateEntry is one secret's template stanza: its description, and a
// null value to be filled in.
func templateEntry(description string) *yaml.Node {
	entry := &yaml.Node{Kind: yaml.MappingNode}
	if description != "" {
		node := scalarNode(description)
		// Long descriptions read better folded across lines.
		if len(description) > 72 || strings.Contains(description, "\n") {
			node.Style = yaml.FoldedStyle
		}
		entry.Content = append(entry.Content, scalarNode("description"), node)
	}
	entry.Content = append(entry.Content,
		scalarNode("value"),
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
	return entry
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

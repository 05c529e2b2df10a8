package dcop

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the block-structured artifact read by the external solver.
// Field order fixes section order; yaml.v3 sorts map keys.
type document struct {
	Name        string                   `yaml:"name"`
	Objective   string                   `yaml:"objective"`
	Domains     map[string]domainDoc     `yaml:"domains"`
	Variables   map[string]variableDoc   `yaml:"variables"`
	Constraints map[string]constraintDoc `yaml:"constraints"`
	Agents      []string                 `yaml:"agents"`
}

type domainDoc struct {
	Values []int `yaml:"values,flow"`
}

type variableDoc struct {
	Domain string `yaml:"domain"`
}

type constraintDoc struct {
	Type     string `yaml:"type"`
	Function string `yaml:"function"`
}

// Marshal serializes p into the solver's YAML problem format.
func Marshal(p *Problem) ([]byte, error) {
	doc := document{
		Name:        p.Name,
		Objective:   p.Objective,
		Domains:     make(map[string]domainDoc, len(p.Domains)),
		Variables:   make(map[string]variableDoc, len(p.Variables)),
		Constraints: make(map[string]constraintDoc, len(p.Constraints)),
		Agents:      p.Agents,
	}
	for _, d := range p.Domains {
		doc.Domains[d.Name] = domainDoc{Values: d.Values}
	}
	for _, v := range p.Variables {
		doc.Variables[v.Name] = variableDoc{Domain: v.Domain}
	}
	for _, c := range p.Constraints {
		doc.Constraints[c.Name] = constraintDoc{Type: "intention", Function: c.Expression()}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal problem %s: %w", p.Name, err)
	}
	return data, nil
}

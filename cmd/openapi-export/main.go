// Command openapi-export writes the generated API document as YAML and can
// check it for backward-incompatible changes against a previous export.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"inkwell/docs"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

type operation struct {
	Responses map[string]struct{}
}

type parsedSpec struct {
	Paths map[string]map[string]operation
}

func main() {
	out := flag.String("out", "", "write swagger.yaml here (stdout when empty)")
	base := flag.String("check", "", "previous swagger.yaml; fail if the current API removes anything from it")
	flag.Parse()

	current, err := exportYAML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to export spec: %v\n", err)
		os.Exit(1)
	}

	if strings.TrimSpace(*base) != "" {
		// #nosec G304: path comes from CLI flags in a dev tool
		raw, err := os.ReadFile(*base)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read base spec: %v\n", err)
			os.Exit(1)
		}
		issues, err := check(raw, current)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to compare specs: %v\n", err)
			os.Exit(1)
		}
		if len(issues) > 0 {
			fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "- %s\n", issue)
			}
			os.Exit(1)
		}
		fmt.Println("openapi compatibility check passed")
		return
	}

	if *out == "" {
		_, _ = os.Stdout.Write(current)
		return
	}
	if err := os.WriteFile(*out, current, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
}

// exportYAML renders the registered swagger document as YAML, keeping key order.
func exportYAML() ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &node); err != nil {
		return nil, err
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clearStyle drops the JSON flow style so the output is block YAML.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func check(base, revision []byte) ([]string, error) {
	baseSpec, err := parseSpec(base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	revisionSpec, err := parseSpec(revision)
	if err != nil {
		return nil, fmt.Errorf("revision: %w", err)
	}
	return compare(baseSpec, revisionSpec), nil
}

func parseSpec(raw []byte) (parsedSpec, error) {
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return parsedSpec{}, err
	}

	pathsRaw, ok := doc["paths"]
	if !ok {
		return parsedSpec{}, errors.New("missing top-level paths field")
	}
	pathsMap, ok := pathsRaw.(map[string]interface{})
	if !ok {
		return parsedSpec{}, errors.New("paths is not an object")
	}

	spec := parsedSpec{Paths: make(map[string]map[string]operation)}
	for pathKey, pathEntry := range pathsMap {
		methods, ok := pathEntry.(map[string]interface{})
		if !ok {
			continue
		}

		ops := make(map[string]operation)
		for methodKey, methodEntry := range methods {
			method := strings.ToLower(strings.TrimSpace(methodKey))
			if _, supported := supportedMethods[method]; !supported {
				continue
			}
			body, ok := methodEntry.(map[string]interface{})
			if !ok {
				continue
			}

			responses := make(map[string]struct{})
			if codes, ok := body["responses"].(map[string]interface{}); ok {
				for code := range codes {
					if normalized := strings.ToLower(strings.TrimSpace(code)); normalized != "" {
						responses[normalized] = struct{}{}
					}
				}
			}
			ops[method] = operation{Responses: responses}
		}

		if len(ops) > 0 {
			spec.Paths[pathKey] = ops
		}
	}
	return spec, nil
}

func compare(base, revision parsedSpec) []string {
	var issues []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}
		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}

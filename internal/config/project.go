package config

import (
	"os"
	"path"
	"path/filepath"

	"github.com/Masterminds/semver"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stagecraft/stagecraft/internal/mount"
	"github.com/stagecraft/stagecraft/internal/paths"
	"github.com/stagecraft/stagecraft/internal/style"
)

// ProjectFile names the descriptor that marks a project root.
const ProjectFile = "stagecraft.yml"

const supportedVersions = "^1.0"

type Project struct {
	Root         string                 `yaml:"-"`
	Version      string                 `yaml:"version"`
	Services     map[string]Service     `yaml:"services"`
	Environments map[string]Environment `yaml:"environments"`
	Branches     Branches               `yaml:"branches"`
}

type Service struct {
	// Dir is the service directory relative to the project root. It defaults to the service name.
	Dir    string            `yaml:"dir"`
	Image  string            `yaml:"image"`
	Mounts Mounts            `yaml:"mounts"`
	Build  []string          `yaml:"build"`
	Deploy []string          `yaml:"deploy"`
	Env    map[string]string `yaml:"env"`
}

type Environment struct {
	Services map[string]Service `yaml:"services"`
}

type Mount struct {
	Dest   string
	Source string
}

// Mounts keeps the order mounts were written in.
type Mounts []Mount

// Branches maps branch name patterns to environments. The first matching pattern wins.
type Branches []BranchRule

type BranchRule struct {
	Pattern     string
	Environment string
}

// FindProject looks for the project descriptor in dir and its parents and returns the project root.
func FindProject(dir string) (string, error) {
	root, err := paths.FindUp(dir, ProjectFile)
	if err != nil {
		return "", errors.Wrap(err, "locating project")
	}
	return root, nil
}

// ReadProject loads and validates the descriptor of the project at root.
func ReadProject(root string) (Project, error) {
	contents, err := os.ReadFile(filepath.Join(root, ProjectFile))
	if err != nil {
		return Project{}, errors.Wrapf(err, "reading %s", style.Symbol(ProjectFile))
	}

	var p Project
	if err := yaml.Unmarshal(contents, &p); err != nil {
		return Project{}, errors.Wrapf(err, "parsing %s", style.Symbol(ProjectFile))
	}
	p.Root = root

	if err := p.validate(); err != nil {
		return Project{}, errors.Wrapf(err, "invalid %s", style.Symbol(ProjectFile))
	}
	return p, nil
}

func (p Project) validate() error {
	if p.Version == "" {
		return errors.New("missing version")
	}
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return errors.Wrapf(err, "parsing version %s", style.Symbol(p.Version))
	}
	c, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return errors.Errorf("version %s is not supported, expected %s", style.Symbol(p.Version), supportedVersions)
	}

	for svcName, svc := range p.Services {
		if err := svc.validate(svcName); err != nil {
			return err
		}
	}

	for envName, env := range p.Environments {
		for svcName, svc := range env.Services {
			if _, ok := p.Services[svcName]; !ok {
				return errors.Errorf("environment %s overrides unknown service %s", style.Symbol(envName), style.Symbol(svcName))
			}
			if err := svc.validate(svcName); err != nil {
				return errors.Wrapf(err, "environment %s", style.Symbol(envName))
			}
		}
	}

	for _, rule := range p.Branches {
		if _, err := path.Match(rule.Pattern, ""); err != nil {
			return errors.Wrapf(err, "branch pattern %s", style.Symbol(rule.Pattern))
		}
	}
	return nil
}

func (s Service) validate(svcName string) error {
	if s.Image != "" {
		if _, err := name.ParseReference(s.Image, name.WeakValidation); err != nil {
			return errors.Wrapf(err, "service %s has an invalid image", style.Symbol(svcName))
		}
	}
	for _, m := range s.Mounts {
		if m.Source == "" {
			return errors.Errorf("service %s mounts nothing onto %s", style.Symbol(svcName), style.Symbol(m.Dest))
		}
	}
	return nil
}

// Service returns the named service with the overrides of env applied.
func (p Project) Service(svcName, env string) (Service, error) {
	base, ok := p.Services[svcName]
	if !ok {
		return Service{}, errors.Errorf("unknown service %s", style.Symbol(svcName))
	}
	if base.Dir == "" {
		base.Dir = svcName
	}

	if e, ok := p.Environments[env]; ok {
		if override, ok := e.Services[svcName]; ok {
			base = base.merge(override)
		}
	}
	return base, nil
}

func (s Service) merge(o Service) Service {
	out := s
	if o.Dir != "" {
		out.Dir = o.Dir
	}
	if o.Image != "" {
		out.Image = o.Image
	}
	if o.Build != nil {
		out.Build = o.Build
	}
	if o.Deploy != nil {
		out.Deploy = o.Deploy
	}

	if len(o.Env) > 0 {
		out.Env = make(map[string]string, len(s.Env)+len(o.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
		for k, v := range o.Env {
			out.Env[k] = v
		}
	}

	if len(o.Mounts) > 0 {
		out.Mounts = append(Mounts(nil), s.Mounts...)
		for _, m := range o.Mounts {
			if i := out.Mounts.index(m.Dest); i >= 0 {
				out.Mounts[i] = m
			} else {
				out.Mounts = append(out.Mounts, m)
			}
		}
	}
	return out
}

// TaggedImage returns the service image reference with its tag replaced by tag.
func (s Service) TaggedImage(tag string) (string, error) {
	if s.Image == "" {
		return "", nil
	}
	ref, err := name.ParseReference(s.Image, name.WeakValidation)
	if err != nil {
		return "", err
	}
	if tag == "" {
		return ref.Name(), nil
	}
	return ref.Context().Tag(tag).Name(), nil
}

// EnvironmentForBranch returns the environment of the first branch rule matching branch.
func (p Project) EnvironmentForBranch(branch string) (string, bool) {
	if branch == "" {
		return "", false
	}
	for _, rule := range p.Branches {
		if ok, _ := path.Match(rule.Pattern, branch); ok {
			return rule.Environment, true
		}
	}
	return "", false
}

// ResolveEnvironment picks the environment to work in: an explicit choice first, then the
// branch mapping, then the user's default. It returns "" when none applies.
func ResolveEnvironment(explicit, branch string, p Project, cfg Config) string {
	if explicit != "" {
		return explicit
	}
	if env, ok := p.EnvironmentForBranch(branch); ok {
		return env
	}
	return cfg.DefaultEnvironment
}

// FileMap converts the mounts into the batch the mount coordinator applies.
func (m Mounts) FileMap() mount.FileMap {
	files := make(mount.FileMap, 0, len(m))
	for _, mt := range m {
		files = append(files, mount.Mapping{Dest: mt.Dest, Source: mt.Source})
	}
	return files
}

func (m Mounts) index(dest string) int {
	for i, mt := range m {
		if filepath.Clean(mt.Dest) == filepath.Clean(dest) {
			return i
		}
	}
	return -1
}

func (m *Mounts) UnmarshalYAML(node *yaml.Node) error {
	pairs, err := orderedPairs(node, "mounts")
	if err != nil {
		return err
	}

	out := make(Mounts, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Mount{Dest: p[0], Source: p[1]})
	}
	*m = out
	return nil
}

func (b *Branches) UnmarshalYAML(node *yaml.Node) error {
	pairs, err := orderedPairs(node, "branches")
	if err != nil {
		return err
	}

	out := make(Branches, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, BranchRule{Pattern: p[0], Environment: p[1]})
	}
	*b = out
	return nil
}

// orderedPairs reads a string to string mapping keeping document order.
func orderedPairs(node *yaml.Node, field string) ([][2]string, error) {
	if node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: %s must be a mapping", node.Line, field)
	}

	seen := map[string]bool{}
	var pairs [][2]string
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key, value string
		if err := node.Content[i].Decode(&key); err != nil {
			return nil, err
		}
		if err := node.Content[i+1].Decode(&value); err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, errors.Errorf("line %d: duplicate %s entry %s", node.Content[i].Line, field, style.Symbol(key))
		}
		seen[key] = true
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}

package delegate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/store"
)

const (
	domainKeyPrefix = "delegate:domain:"
	domainsKey      = "delegate:domains"
)

// Domain maps a delegation domain to the agent that serves it, the keywords
// that select it, and the skills it is expected to carry.
type Domain struct {
	Name     string   `json:"name"`
	AgentID  string   `json:"agent_id"`
	Keywords []string `json:"keywords,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// DomainRegistry persists delegation domains: one hash per domain plus a set
// of registered domain names.
type DomainRegistry struct {
	store  store.Store
	logger logging.Logger
}

// NewDomainRegistry creates a DomainRegistry over the store.
func NewDomainRegistry(s store.Store, logger logging.Logger) *DomainRegistry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &DomainRegistry{store: s, logger: logger}
}

// Register stores or replaces a domain mapping.
func (r *DomainRegistry) Register(ctx context.Context, d Domain) error {
	if d.Name == "" {
		return fmt.Errorf("domain name must not be empty")
	}
	if d.AgentID == "" {
		return fmt.Errorf("domain %q must name an agent", d.Name)
	}

	keywords, err := json.Marshal(d.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords for domain %q: %w", d.Name, err)
	}
	skills, err := json.Marshal(d.Skills)
	if err != nil {
		return fmt.Errorf("encode skills for domain %q: %w", d.Name, err)
	}

	fields := map[string]string{
		"agent_id": d.AgentID,
		"keywords": string(keywords),
		"skills":   string(skills),
	}
	if err := r.store.HashSet(ctx, domainKeyPrefix+d.Name, fields); err != nil {
		return err
	}
	if err := r.store.SetAdd(ctx, domainsKey, d.Name); err != nil {
		return err
	}
	r.logger.Info("registered delegation domain", "domain", d.Name, "agent_id", d.AgentID)
	return nil
}

// Get returns the domain mapping, or false when the domain is unknown.
func (r *DomainRegistry) Get(ctx context.Context, name string) (Domain, bool, error) {
	fields, err := r.store.HashGetAll(ctx, domainKeyPrefix+name)
	if err != nil {
		return Domain{}, false, err
	}
	if len(fields) == 0 {
		return Domain{}, false, nil
	}
	return decodeDomain(name, fields), true, nil
}

// All returns every registered domain, sorted by name so callers iterate in
// a stable order.
func (r *DomainRegistry) All(ctx context.Context) ([]Domain, error) {
	names, err := r.store.SetMembers(ctx, domainsKey)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var out []Domain
	for _, name := range names {
		d, ok, err := r.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Remove deletes a domain mapping.
func (r *DomainRegistry) Remove(ctx context.Context, name string) error {
	if err := r.store.Delete(ctx, domainKeyPrefix+name); err != nil {
		return err
	}
	return r.store.SetRemove(ctx, domainsKey, name)
}

func decodeDomain(name string, fields map[string]string) Domain {
	d := Domain{Name: name, AgentID: fields["agent_id"]}
	if raw := fields["keywords"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &d.Keywords)
	}
	if raw := fields["skills"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &d.Skills)
	}
	for i, k := range d.Keywords {
		d.Keywords[i] = strings.ToLower(k)
	}
	return d
}

package messaging

import "errors"

var ErrTemplateNotFound = errors.New("messaging: template not found")

// Template is a static WhatsApp message template.
// Content may carry a {{nome}} placeholder filled from the lead name.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

const NamePlaceholder = "{{nome}}"

var defaultTemplates = []Template{
	{ID: "welcome_1", Name: "Welcome", Content: "Hi {{nome}}! Thanks for your interest. How can we help you find your new home?"},
	{ID: "docs_req", Name: "Document Request", Content: "Hi {{nome}}, to move forward please send a photo of your ID and proof of income."},
	{ID: "follow_up", Name: "Follow-up (3 days)", Content: "Hi {{nome}}, are you still looking for a property? We have new listings that match your profile."},
}

// Catalog is a read-only template lookup.
type Catalog struct {
	list []Template
	byID map[string]Template
}

func NewCatalog(templates ...Template) *Catalog {
	c := &Catalog{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		if _, dup := c.byID[t.ID]; dup {
			continue
		}
		c.list = append(c.list, t)
		c.byID[t.ID] = t
	}
	return c
}

func DefaultCatalog() *Catalog { return NewCatalog(defaultTemplates...) }

func (c *Catalog) List() []Template {
	out := make([]Template, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Catalog) Lookup(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

func (c *Catalog) HasTemplate(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Package apps provides the dashboard's built-in applications. Apps are
// compiled in and registered in a fixed table; there is no dynamic loading.
package apps

// Fragment is the renderable payload of one app.
type Fragment struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// App is one dashboard application.
type App interface {
	ID() string
	Name() string
	Description() string
	Icon() string
	Render() Fragment
}

// Info is the listing entry for a registered app.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Registry is a fixed table of apps in registration order.
type Registry struct {
	apps []App
	byID map[string]App
}

// NewRegistry builds a registry from a fixed app list. The first app to
// claim an id wins.
func NewRegistry(list ...App) *Registry {
	r := &Registry{byID: make(map[string]App, len(list))}
	for _, a := range list {
		if _, taken := r.byID[a.ID()]; taken {
			continue
		}
		r.apps = append(r.apps, a)
		r.byID[a.ID()] = a
	}
	return r
}

// BuiltIn returns the registry of apps shipped with the server.
func BuiltIn() *Registry {
	return NewRegistry(SearchApp{}, AnalyticsApp{}, AssetMapApp{})
}

// List returns the registered apps' metadata in registration order.
func (r *Registry) List() []Info {
	list := make([]Info, 0, len(r.apps))
	for _, a := range r.apps {
		list = append(list, Info{
			ID:          a.ID(),
			Name:        a.Name(),
			Description: a.Description(),
			Icon:        a.Icon(),
		})
	}
	return list
}

// Get looks an app up by id.
func (r *Registry) Get(id string) (App, bool) {
	a, ok := r.byID[id]
	return a, ok
}

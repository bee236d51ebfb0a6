// Package logg holds the zap field names shared by every layer.
package logg

const (
	Layer       = "layer"
	Operation   = "op"
	RunID       = "run_id"
	Step        = "step"
	Action      = "action"
	Selector    = "selector"
	URL         = "url"
	Description = "description"
	Strategy    = "strategy"
	Tier        = "tier"
	Provider    = "provider"
	Slot        = "slot"
	Path        = "path"
)

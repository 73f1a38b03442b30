package dashboard

import "context"

// LayoutSource names where an effective layout came from.
type LayoutSource string

const (
	SourceOverride  LayoutSource = "override"
	SourcePublished LayoutSource = "published"
	SourceScaffold  LayoutSource = "scaffold"
	SourcePreview   LayoutSource = "preview"
)

// ResolvedLayout is the effective instance sequence for a session.
type ResolvedLayout struct {
	Source    LayoutSource     `json:"source"`
	Instances []WidgetInstance `json:"instances"`
}

// ResolveEffective applies the load order: a non-empty override for a
// signed-in user, then a non-empty published layout, then the scaffold. The
// scaffold is never written back.
func ResolveEffective(ctx context.Context, store *LayoutStore, session Session) ResolvedLayout {
	if session.SignedIn() {
		if override := store.FetchUserOverride(ctx, session.OrganizationID, session.UserID); override != nil && len(override.Instances) > 0 {
			return ResolvedLayout{Source: SourceOverride, Instances: override.Instances}
		}
	}
	return resolvePublished(ctx, store, session.OrganizationID)
}

func resolvePublished(ctx context.Context, store *LayoutStore, orgID string) ResolvedLayout {
	if published := store.FetchPublished(ctx, orgID); published != nil && len(published.Instances) > 0 {
		return ResolvedLayout{Source: SourcePublished, Instances: published.Instances}
	}
	return ResolvedLayout{Source: SourceScaffold, Instances: ScaffoldInstances()}
}

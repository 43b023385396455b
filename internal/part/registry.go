// Package part keeps the merchant's names for the meshes of an uploaded 3D model.
//
// A Registry is a value: every operation returns a new Registry and leaves the
// receiver untouched. A mesh maps to at most one part, and a part belongs to at
// most one group; both sides of group membership are kept in step.
package part

import (
	"slices"

	"github.com/google/uuid"
)

// Role tags what a part does in the product.
type Role string

const (
	RoleMain       Role = "main"
	RoleSwappable  Role = "swappable"
	RoleOptional   Role = "optional"
	RoleAddOn      Role = "add-on"
	RoleDecorative Role = "decorative"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMain, RoleSwappable, RoleOptional, RoleAddOn, RoleDecorative:
		return true
	}
	return false
}

// Part is a named reference to one mesh. MeshIndex is a weak back-reference into
// the asset's mesh list and may dangle once the asset changes.
type Part struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	MeshIndex int     `json:"meshIndex"`
	Role      Role    `json:"role"`
	ParentID  *string `json:"parentId,omitempty"`
	GroupID   *string `json:"groupId,omitempty"`
}

// Group labels a set of parts.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	PartIDs []string `json:"partIds"`
}

// Registry holds every part and group of one product.
type Registry struct {
	Parts  []Part  `json:"parts"`
	Groups []Group `json:"groups"`
}

func strPtr(s string) *string { return &s }

func (r Registry) clone() Registry {
	out := Registry{
		Parts:  make([]Part, len(r.Parts)),
		Groups: make([]Group, len(r.Groups)),
	}
	for i, p := range r.Parts {
		if p.ParentID != nil {
			p.ParentID = strPtr(*p.ParentID)
		}
		if p.GroupID != nil {
			p.GroupID = strPtr(*p.GroupID)
		}
		out.Parts[i] = p
	}
	for i, g := range r.Groups {
		g.PartIDs = slices.Clone(g.PartIDs)
		if g.PartIDs == nil {
			g.PartIDs = []string{}
		}
		out.Groups[i] = g
	}
	return out
}

func (r Registry) partIndex(id string) int {
	return slices.IndexFunc(r.Parts, func(p Part) bool { return p.ID == id })
}

func (r Registry) groupIndex(id string) int {
	return slices.IndexFunc(r.Groups, func(g Group) bool { return g.ID == id })
}

// PartByMesh returns the part naming mesh meshIndex, if any.
func (r Registry) PartByMesh(meshIndex int) (Part, bool) {
	for _, p := range r.Parts {
		if p.MeshIndex == meshIndex {
			return p, true
		}
	}
	return Part{}, false
}

// PartByID returns the part with the given id, if any.
func (r Registry) PartByID(id string) (Part, bool) {
	if i := r.partIndex(id); i >= 0 {
		return r.Parts[i], true
	}
	return Part{}, false
}

// PartIDs lists part ids in registry order.
func (r Registry) PartIDs() []string {
	ids := make([]string, len(r.Parts))
	for i, p := range r.Parts {
		ids[i] = p.ID
	}
	return ids
}

// NamePart names the mesh at meshIndex. If a part already exists for that mesh it
// is renamed and re-tagged in place; otherwise a new part is created.
func (r Registry) NamePart(meshIndex int, name string, role Role) (Registry, Part) {
	if meshIndex < 0 || !role.Valid() {
		return r, Part{}
	}
	out := r.clone()
	for i := range out.Parts {
		if out.Parts[i].MeshIndex == meshIndex {
			out.Parts[i].Name = name
			out.Parts[i].Role = role
			return out, out.Parts[i]
		}
	}
	p := Part{ID: uuid.NewString(), Name: name, MeshIndex: meshIndex, Role: role}
	out.Parts = append(out.Parts, p)
	return out, p
}

// SetRole re-tags a part.
func (r Registry) SetRole(partID string, role Role) Registry {
	i := r.partIndex(partID)
	if i < 0 || !role.Valid() {
		return r
	}
	out := r.clone()
	out.Parts[i].Role = role
	return out
}

// SetParent attaches a part under another one. An empty parentID detaches it.
// Self-parenting and unknown parents are ignored.
func (r Registry) SetParent(partID, parentID string) Registry {
	i := r.partIndex(partID)
	if i < 0 || partID == parentID {
		return r
	}
	out := r.clone()
	if parentID == "" {
		out.Parts[i].ParentID = nil
		return out
	}
	if r.partIndex(parentID) < 0 {
		return r
	}
	out.Parts[i].ParentID = strPtr(parentID)
	return out
}

// Group creates a group over the named parts. Ids that do not belong to a named
// part are skipped; when none remain no group is created. Parts that already
// belonged to another group move to the new one.
func (r Registry) Group(partIDs []string, name string) (Registry, Group, bool) {
	var members []string
	for _, id := range partIDs {
		if r.partIndex(id) >= 0 && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return r, Group{}, false
	}

	out := r.clone()
	g := Group{ID: uuid.NewString(), Name: name, PartIDs: members}
	for _, id := range members {
		out = out.detach(id)
		out.Parts[out.partIndex(id)].GroupID = strPtr(g.ID)
	}
	out.Groups = append(out.Groups, g)
	return out, g, true
}

// detach removes partID from whatever group lists it and clears its GroupID.
// It writes through r's slices, so r must already be a private clone.
func (r Registry) detach(partID string) Registry {
	i := r.partIndex(partID)
	if i < 0 {
		return r
	}
	if gid := r.Parts[i].GroupID; gid != nil {
		if gi := r.groupIndex(*gid); gi >= 0 {
			r.Groups[gi].PartIDs = slices.DeleteFunc(r.Groups[gi].PartIDs,
				func(id string) bool { return id == partID })
		}
	}
	r.Parts[i].GroupID = nil
	return r
}

// Ungroup takes a part out of its group. The group stays even when it ends up
// empty; see PruneEmptyGroups.
func (r Registry) Ungroup(partID string) Registry {
	i := r.partIndex(partID)
	if i < 0 || r.Parts[i].GroupID == nil {
		return r
	}
	return r.clone().detach(partID)
}

// PruneEmptyGroups drops groups that no longer have members.
func (r Registry) PruneEmptyGroups() Registry {
	out := r.clone()
	out.Groups = slices.DeleteFunc(out.Groups, func(g Group) bool { return len(g.PartIDs) == 0 })
	return out
}

// RenameGroup changes a group's label.
func (r Registry) RenameGroup(groupID, name string) Registry {
	gi := r.groupIndex(groupID)
	if gi < 0 {
		return r
	}
	out := r.clone()
	out.Groups[gi].Name = name
	return out
}

// RemovePart deletes a part, its group membership, and any parent links to it.
func (r Registry) RemovePart(partID string) Registry {
	if r.partIndex(partID) < 0 {
		return r
	}
	out := r.clone().detach(partID)
	out.Parts = slices.DeleteFunc(out.Parts, func(p Part) bool { return p.ID == partID })
	for i := range out.Parts {
		if out.Parts[i].ParentID != nil && *out.Parts[i].ParentID == partID {
			out.Parts[i].ParentID = nil
		}
	}
	return out
}

// RemoveAsset forgets every part and group; used when the 3D asset is deleted.
func (r Registry) RemoveAsset() Registry {
	return Registry{Parts: []Part{}, Groups: []Group{}}
}

// DedupeMeshes keeps the first part for each mesh index and drops the rest,
// along with group memberships and parent links that pointed at them.
func (r Registry) DedupeMeshes() Registry {
	seenMesh := map[int]bool{}
	seenID := map[string]bool{}
	kept := make([]Part, 0, len(r.Parts))
	for _, p := range r.Parts {
		if seenMesh[p.MeshIndex] || seenID[p.ID] {
			continue
		}
		seenMesh[p.MeshIndex] = true
		seenID[p.ID] = true
		kept = append(kept, p)
	}
	if len(kept) == len(r.Parts) {
		return r
	}

	out := Registry{Parts: kept, Groups: r.Groups}.clone()
	for i := range out.Parts {
		if pid := out.Parts[i].ParentID; pid != nil && !seenID[*pid] {
			out.Parts[i].ParentID = nil
		}
	}
	for gi := range out.Groups {
		out.Groups[gi].PartIDs = slices.DeleteFunc(out.Groups[gi].PartIDs,
			func(id string) bool { return !seenID[id] })
	}
	return out
}

// Reconcile drops parts whose mesh index no longer exists in an asset with
// meshCount meshes.
func (r Registry) Reconcile(meshCount int) Registry {
	out := r
	for _, p := range r.Parts {
		if p.MeshIndex >= meshCount {
			out = out.RemovePart(p.ID)
		}
	}
	return out
}

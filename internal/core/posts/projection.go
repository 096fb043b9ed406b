package posts

import "github.com/we-be/vibe-chuck/internal/baas"

// ownerField is the relation from a post to the user who submitted it.
const ownerField = "op"

// ProjectContext carries what the projection needs beyond the record itself.
type ProjectContext struct {
	// EventDisplayName is attached to posts listed outside their event page.
	EventDisplayName string
	// OwnerExpanded is true when the query asked the backend to expand the owner.
	OwnerExpanded bool
}

// Project maps a raw posts record to its view. It performs no I/O.
//
// Defaults: missing title, description and event are empty; missing votes is 0;
// a missing, zero or negative rank leaves the post unranked.
//
// Owner name precedence when the owner was expanded: name, then username, then
// UnknownOwner. Without expansion the raw owner id is used.
func Project(rec baas.Record, pc ProjectContext, files FileResolver) PostView {
	view := PostView{
		ID:               rec.ID(),
		EventDisplayName: pc.EventDisplayName,
		Imgs:             ResolveImages(files, rec),
	}

	view.Title, _ = rec.String("title")
	view.Description, _ = rec.String("description")
	view.Event, _ = rec.String("event")
	view.Op, _ = rec.String(ownerField)

	if votes, ok := rec.Int("votes"); ok {
		view.Votes = votes
	}
	if rank, ok := rec.Int("rank"); ok && rank > 0 {
		view.Rank = rank
		view.HasRank = true
	}
	if created, ok := rec.Time("created"); ok {
		view.Created = created
	}

	view.OwnerName = ownerName(rec, view.Op, pc.OwnerExpanded)
	return view
}

func ownerName(rec baas.Record, ownerID string, expanded bool) string {
	if !expanded {
		return ownerID
	}
	owner, ok := rec.Expand(ownerField)
	if !ok {
		return UnknownOwner
	}
	if name, ok := owner.String("name"); ok && name != "" {
		return name
	}
	if username, ok := owner.String("username"); ok && username != "" {
		return username
	}
	return UnknownOwner
}

// ResolveImages returns one URL per stored image of rec, in stored order.
// A record without images yields an empty slice. Empty references, and
// references files cannot resolve, are skipped, so every entry is a usable URL
// and later images shift up rather than leaving blanks.
func ResolveImages(files FileResolver, rec baas.Record) []string {
	names, _ := rec.Strings("imgs")
	urls := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if u := files.FileURL(rec, name); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

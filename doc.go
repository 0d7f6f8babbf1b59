// Package surface provides lazily materialized, stateful page components
// ("surfaces") for server-rendered Go applications.
//
// A surface owns a piece of state and a private subtree of markup built
// from a declarative template. It renders through a single
// synchronization point, Refresh, which:
//
//  1. materializes the private subtree from the surface's visual template
//     the first time it runs (MaterializeOnce),
//  2. on that first run only, mounts shared mixins and lets the surface
//     wire its interaction handlers,
//  3. projects current state onto the subtree, every time.
//
// # Core Concepts
//
// Surfaces embed *Base, which holds the private subtree handle and the
// explicit lifecycle phase (Unattached, FirstRefresh, Steady):
//
//	type Counter struct {
//	    *surface.Base
//	    value int
//	}
//
// The contract between the shared materialization behavior and a surface
// is the Host interface. It has an unexported method, so the subtree
// handle cannot be reached or replaced outside this package; embedding
// *Base is the only way to satisfy it.
//
// Shared behaviors compose as a list rather than a class chain:
//
//	surface.NewBase("counter-surface", host,
//	    surface.WithMixins(surface.Styles(sheet), surface.HostAttr("data-ready", "")))
//
// # Lifecycle
//
// The host environment drives two entry points that both converge on
// Refresh: Connected (attached to a page) and AttributeChanged (a watched
// attribute changed). A Registry maps tags to constructors and upgrades
// elements; a Document parses a page, upgrades every defined element and
// serializes all event delivery.
//
// # Errors
//
// A template without an element the surface needs surfaces as a
// *ContractError (errors.Is ErrTemplateContract). Unparseable watched
// attribute values wrap ErrMalformedAttribute and leave state unchanged.
//
// # HTTP
//
// Registry.Handler serves surfaces over HTMX. State travels in a signed
// or encrypted token and is replayed through the watched-attribute entry
// point on every request, so the server keeps no per-client state.
// Mutating requests require the HX-Request header.
package surface

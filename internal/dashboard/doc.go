// Package dashboard holds the server-side state behind one browser session:
// the coordinator that owns filters and the main earthquake list, the map
// marker set, the nearby/prediction panel and the advisory panel.
//
// Each view fetches and owns its own data. Every fetch is stamped with a
// per-view sequence number and a response is applied only if it answers the
// latest request issued for that view; older responses are dropped.
package dashboard

/*
Package spahead serves "Single Page Applications" (SPAs) with server-rendered
heads: while the application body is rendered client-side only, the title and
meta tags of the route matching a request are rendered on the server, so that
crawlers and link previews see them without running any script.

The SPAHandler type implements http.Handler to serve the SPA and its static
resources. The SPAHandler fetches these resources from any resource provider
implementing the fs.FS interface, supporting client-side DOM routing and
varying base paths. For all other request paths it serves the SPA's index
document with the head of the matching route and the route's preload links
spliced in at the HeadMarker placeholder.

The route package defines route tables and the per-route head handles, the
head package resolves and reconciles heads, the preload package derives
preload links from a build's asset manifest, and the ssr package ties these
together into a RenderFunc.
*/
package spahead

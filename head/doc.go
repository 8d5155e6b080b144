/*
Package head resolves and renders the document head of matched routes.

Resolve turns the leaf frame of a route match into head markup, falling back
to Default when a route has no head of its own. SEO is the usual head element,
rendering a title together with a set of "managed" meta and link tags. Managed
tags carry a data-managed-tag attribute so that Reconcile can swap them out of
an existing document when navigating between routes.
*/
package head

/*
Package ssr is the server-side render entry of spahead: it matches requests
against a route table, runs route guards, resolves the leaf route's head, and
generates preload links from the asset manifest when one is available.

Only the head is rendered on the server; the body of the SPA is rendered on
the client. HeadHandler additionally serves resolved heads to clients for
their client-side navigations.
*/
package ssr

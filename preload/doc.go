/*
Package preload turns a production build's asset manifest into preload link
tags, so that browsers can start fetching a route's code and styles before
the client bundle asks for them.

Preload links are a best-effort optimization: an absent manifest or an unknown
component identifier simply yields no links.
*/
package preload

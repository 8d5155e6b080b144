/*
Package prefetch warms the code of routes before users navigate to them.

A Controller gets told when the pointer hovers over a link; it matches the
link's target against the route table and runs the leaf route's prefetch
function in the background, remembering successfully prefetched paths in an
injected Set. Failed prefetches are only logged, so that hovering again
retries them. AssetLoader provides prefetch functions fetching a route's
manifest assets over HTTP.
*/
package prefetch

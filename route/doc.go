/*
Package route defines route tables for client-rendered single page
applications, where each route declares how to compute its document head and
how to prefetch its code.

A Table is built once from a tree of Descriptors and is read-only thereafter.
Table.Match is the single matching algorithm used both when rendering heads on
the server and when prefetching on link hovers, so both always agree on which
route is the leaf. Only the leaf of a Match is authoritative for head and
prefetch; the Handles of its ancestors are ignored.
*/
package route

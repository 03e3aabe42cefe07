// Package remesh measures the approximation error between a working
// triangle surface and the input surface it was remeshed from.
//
// Samples taken on facets, edges and vertices of either surface are linked
// to their closest points on the other. Each working face tracks the
// largest squared distance over the links that concern it, and a Session
// keeps those errors current while edges are split, flipped or collapsed.
package remesh

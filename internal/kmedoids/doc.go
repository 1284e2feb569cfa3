// Package kmedoids clusters binary descriptors under Hamming distance.
//
// Cluster centres are always input descriptors (medoids), so a centre is a
// valid bit string and the same nearest-centre rule can be used when building
// and when searching a tree.
package kmedoids

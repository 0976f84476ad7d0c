// Package registry tracks live broker instances in a small SQLite database
// under the harness base directory. Its purpose is crash recovery: a harness
// process that dies leaves its workspaces and registry rows behind, and the
// next Purge reaps everything whose owning process is gone.
package registry

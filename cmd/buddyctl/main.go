// Command buddyctl exercises the buddy heap: it shows how address ranges
// are tiled into size classes and runs seeded allocation workloads with
// invariant checking.
package main

func main() {
	execute()
}

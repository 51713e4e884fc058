// Package main provides the entry point for the mdmirror CLI.
//
// mdmirror mirrors the remote images referenced by a tree of Markdown
// documents into sibling <name>_images directories and rewrites the
// documents to point at the local copies.
//
// Usage:
//
//	mdmirror run <directory>
//	mdmirror run --naming asc --workers 8 <directory>
//
// See --help for all available options.
package main

// main is the entry point for mdmirror.
func main() {
	Execute()
}

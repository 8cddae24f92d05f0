// Package bytecode obtains classes.dex for the package.
//
// Strategies are tried in order until one leaves a file behind: compile the
// generated Java source against the platform archive, assemble generated smali,
// build a throwaway apktool project, and finally write the placeholder
// container. The last strategy cannot fail, so Acquire only returns an error
// when it is given a list that does not end with it.
package bytecode

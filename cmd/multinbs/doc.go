// Command multinbs drives network-based stratification of cancer cohorts
// from the shell: it loads interaction networks and molecular profiles,
// smooths and factors them into subtypes, and keeps a ledger of past runs.
package main

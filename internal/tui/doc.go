// Package tui holds the bubbletea programs for the live console and the
// configuration wizard. Models only render state and translate keys into
// controller calls; all daemon I/O happens in the console and wizard
// controllers or in commands returned from Update.
package tui

// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, placeholder chunk files, stub binaries, and scripted fakes for the
// transcription engine and the duration probe.
package testsupport

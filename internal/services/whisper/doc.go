// Package whisper drives a faster-whisper command line tool
// (whisper-ctranslate2 by default) as the transcription engine.
//
// Load validates the command, model location, and device once per run and
// returns a Model. Model.Transcribe runs the tool against one audio file,
// asks for JSON output in a scratch directory, and decodes the timed
// segments. When the tool rejects an option through its argument parser the
// error is reported as a services.UnsupportedOptionError naming that option,
// which lets callers retry without it.
package whisper

// Package language normalizes user supplied language identifiers into the
// ISO 639-1 codes the transcription engine expects.
//
// Short table lookups cover the common ISO 639-2 codes and English words.
// Anything else is parsed as a BCP 47 tag, so "zh-TW" or "pt_BR" reduce to
// their base language.
package language

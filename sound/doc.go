// Package sound collapses "create an emitter, configure it, play a clip,
// clean it up" into single calls. A fixed-size slot pool of reusable
// emitters avoids per-shot allocation churn when firing many transient
// one-shot sounds in a game loop; the dispatcher configures an emitter and
// starts playback synchronously. Mixing and device output belong to the
// pluggable Engine collaborator.
package sound

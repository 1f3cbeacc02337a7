// Package otoengine implements the sound.Engine interface on the oto
// audio library. It decodes wav, mp3 and ogg files into engine-format PCM
// clips and plays them through oto players, with pitch implemented as
// linear resampling and spatialization as a distance-based gain model.
package otoengine

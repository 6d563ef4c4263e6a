package python

// NewTailBuffer exposes the stdout buffer for tests.
var NewTailBuffer = newTailBuffer

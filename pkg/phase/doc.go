// Package phase implements the single-shot timer that bounds each phase of
// a pairing or OTA run.
//
// # Timer Behavior
//
//   - Arm replaces any pending timer and returns a new generation id
//   - Cancel invalidates the current generation
//   - The expiry callback receives the generation it was armed with
//
// A timer can fire just as its owner moves to the next phase. The owner
// guards against that by calling Claim with the id under its own lock: Claim
// succeeds only for the generation that is still current, so a stale fire is
// a no-op.
package phase

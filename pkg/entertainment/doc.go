// Package entertainment plays looping light effects over a session.
//
// A Player walks a list of Actions in order, waiting each action's delay
// before sending its commands, and starts over at the end of the list
// until stopped.
package entertainment

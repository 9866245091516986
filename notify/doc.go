// Package notify routes live "folder changed" signals to subscribers.
//
// Subscribers register a Handler under the channel key of an (owner, folder)
// pair. Publish fans a payload out to every handler on that key on a later
// scheduler turn; the payload never references journal entries, so
// subscribers catch up through the journal themselves.
package notify

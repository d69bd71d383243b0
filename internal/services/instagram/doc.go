// Package instagram wraps the Graph API calls needed to publish one reel:
// create a media container, poll it until processing finishes, then publish
// it. Publishing is irreversible; the client never publishes the same
// container twice.
package instagram

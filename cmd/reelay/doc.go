// Command reelay schedules Instagram reels: upload a video, write a record
// file with its scheduled time, and let the periodic reconcile run publish
// whatever is due.
package main

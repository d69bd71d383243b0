// Package cloudinary uploads videos to Cloudinary using the signed REST
// upload API and deletes them again during cleanup. Only the returned secure
// URL matters to the rest of reelay.
package cloudinary

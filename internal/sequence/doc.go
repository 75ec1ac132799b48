// Package sequence turns a folder's selected images into numbered plant
// sequences and copies them into the merged output directory.
//
// Planning is pure: Plan takes the next free group id and returns the groups
// plus the id after them, so callers compose folders and datasets by threading
// that value through sequential calls. Ids are therefore gap-free and
// increase strictly in call order. Materialize performs the copies for one
// planned group.
package sequence

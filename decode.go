// SPDX-License-Identifier: GPL-2.0-or-later

// Package sourcemodel decodes a Source-engine studio model — MDL, VVD, VTX,
// and optionally PHY/ANI — into a renderer-agnostic Model (spec §1, §6). It
// is a pure function of its input buffers and an asset Resolver: no config
// file, CLI flag, or environment variable participates (spec §6).
package sourcemodel

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"sourcemodel/anim"
	"sourcemodel/material"
	"sourcemodel/mdl"
	"sourcemodel/meshbuild"
	"sourcemodel/model"
	"sourcemodel/phy"
	"sourcemodel/physics"
	"sourcemodel/skeleton"
	"sourcemodel/vtx"
	"sourcemodel/vvd"
)

// Decode builds a full *model.Model through the default in-memory Builder.
// ani and phy may be nil. Use DecodeInto to stream into a custom Sink.
func Decode(mdlBuf, vvdBuf, vtxBuf, phyBuf, aniBuf []byte, resolver Resolver, opts ...Option) (*model.Model, error) {
	builder := model.NewBuilder()
	if err := DecodeInto(builder, mdlBuf, vvdBuf, vtxBuf, phyBuf, aniBuf, resolver, opts...); err != nil {
		return nil, err
	}
	return builder.Model(), nil
}

// DecodeInto runs the full decode pipeline, writing results to sink.
func DecodeInto(sink Sink, mdlBuf, vvdBuf, vtxBuf, phyBuf, aniBuf []byte, resolver Resolver, opts ...Option) error {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	corrID := uuid.New().String()
	log := cfg.logger.With("correlation_id", corrID)

	mdlR, err := mdl.New(mdlBuf)
	if err != nil {
		return newDecodeError(NotAStudioModel, err)
	}

	vvdR, err := vvd.New(vvdBuf)
	if err != nil {
		return newDecodeError(MissingRequiredSibling, err)
	}

	vtxR, err := vtx.New(vtxBuf)
	if err != nil {
		return newDecodeError(MissingRequiredSibling, err)
	}

	if mdlR.Checksum() != vvdR.Checksum() || mdlR.Checksum() != vtxR.Checksum() {
		return newDecodeError(ChecksumMismatch, errors.Errorf(
			"mdl=%d vvd=%d vtx=%d", mdlR.Checksum(), vvdR.Checksum(), vtxR.Checksum()))
	}

	skel, err := skeleton.Build(mdlR, sink)
	if err != nil {
		return newDecodeError(Malformed, err)
	}

	rootLOD := mdlR.RootLOD()
	vertices, err := vvdR.VerticesForLOD(rootLOD)
	if err != nil {
		return newDecodeError(Malformed, err)
	}

	if err := decodeMeshes(sink, mdlR, vtxR, vertices, rootLOD, resolver, cfg, log); err != nil {
		return newDecodeError(Malformed, err)
	}

	if len(phyBuf) > 0 {
		decodePhysics(sink, phyBuf, skel, cfg, log)
	}

	decodeAnimations(sink, mdlR, aniBuf, resolver, skel, log)

	return nil
}

// decodeMeshes implements spec §4.3: for every (body-part, sub-model) with a
// non-zero mesh count, build the eyeball material map, resolve each mesh's
// material, assemble its triangles from VTX+VVD, and finalize shared bounds.
func decodeMeshes(sink Sink, mdlR *mdl.Reader, vtxR *vtx.Reader, vertices []vvd.Vertex, rootLOD int, resolver Resolver, cfg config, log *zap.SugaredLogger) error {
	searchPaths := make([]string, mdlR.NumCDTextures())
	for i := range searchPaths {
		p, err := mdlR.CDTexturePath(i)
		if err != nil {
			return errors.Wrapf(err, "cdtexture path %d", i)
		}
		searchPaths[i] = p
	}

	for bpi := 0; bpi < mdlR.NumBodyParts(); bpi++ {
		bodyPart, err := mdlR.BodyPart(bpi)
		if err != nil {
			return errors.Wrapf(err, "bodypart %d", bpi)
		}

		for modelIdx := 0; modelIdx < bodyPart.NumModels; modelIdx++ {
			sm, err := mdlR.SubModel(bodyPart, modelIdx)
			if err != nil {
				return errors.Wrapf(err, "bodypart %q submodel %d", bodyPart.Name, modelIdx)
			}
			if sm.NumMeshes == 0 {
				continue
			}
			if sm.VertexIndex%vvd.VertexSize != 0 {
				log.Warnw("submodel vertex index not 48-byte aligned, skipping",
					"body_part", bodyPart.Name, "submodel", modelIdx, "vertex_index", sm.VertexIndex)
				continue
			}
			vertexOffset := int(sm.VertexIndex) / vvd.VertexSize

			eyeMap := make(map[int][]mdl.Eyeball)
			for ei := 0; ei < sm.NumEyeballs; ei++ {
				eb, err := mdlR.Eyeball(sm, ei)
				if err != nil {
					return errors.Wrapf(err, "submodel %d eyeball %d", modelIdx, ei)
				}
				eyeMap[eb.Texture] = append(eyeMap[eb.Texture], eb)
			}

			numLODs, err := vtxR.NumLODs(bpi, modelIdx)
			if err != nil {
				return errors.Wrapf(err, "vtx (%d,%d) lod count", bpi, modelIdx)
			}
			if rootLOD >= numLODs {
				log.Warnw("root lod out of range for vtx submodel, skipping",
					"body_part", bodyPart.Name, "submodel", modelIdx, "root_lod", rootLOD, "vtx_lods", numLODs)
				continue
			}

			meshes := make([]model.Mesh, 0, sm.NumMeshes)
			for mi := 0; mi < sm.NumMeshes; mi++ {
				meshDesc, err := mdlR.Mesh(sm, mi)
				if err != nil {
					return errors.Wrapf(err, "submodel %d mesh %d", modelIdx, mi)
				}

				matHandle, eyeMat, err := resolveMeshMaterial(mdlR, resolver, meshDesc, eyeMap, searchPaths, cfg.mountIdent)
				if err != nil {
					return errors.Wrapf(err, "submodel %d mesh %d material", modelIdx, mi)
				}

				numSG, err := vtxR.NumStripGroups(bpi, modelIdx, rootLOD, mi)
				if err != nil {
					return errors.Wrapf(err, "vtx (%d,%d,%d,%d) strip group count", bpi, modelIdx, rootLOD, mi)
				}
				stripGroups := make([]vtx.StripGroup, 0, numSG)
				for sgi := 0; sgi < numSG; sgi++ {
					sg, err := vtxR.StripGroup(bpi, modelIdx, rootLOD, mi, sgi)
					if err != nil {
						return errors.Wrapf(err, "vtx (%d,%d,%d,%d,%d)", bpi, modelIdx, rootLOD, mi, sgi)
					}
					stripGroups = append(stripGroups, sg)
				}

				meshVertexOffset := vertexOffset + meshDesc.VertexOffset
				built, err := meshbuild.Assemble(stripGroups, vertices, meshVertexOffset, bodyPart.Name, modelIdx, matHandle, eyeMat)
				if err != nil {
					return errors.Wrapf(err, "submodel %d mesh %d assembly", modelIdx, mi)
				}
				meshes = append(meshes, built)
			}

			meshbuild.FinalizeBounds(meshes)
			for _, m := range meshes {
				sink.AddMesh(m)
			}
		}
	}
	return nil
}

// resolveMeshMaterial looks up a mesh's material via the CD-texture search
// paths and substitutes an eye material when the mesh's texture index
// carries eyeball records (spec §4.3 steps 1, 3; §4.6).
func resolveMeshMaterial(mdlR *mdl.Reader, resolver Resolver, meshDesc mdl.Mesh, eyeMap map[int][]mdl.Eyeball, searchPaths []string, mountIdent string) (model.MaterialHandle, *model.EyeMaterial, error) {
	texName, err := mdlR.TextureName(meshDesc.Material)
	if err != nil {
		return nil, nil, err
	}

	var matHandle model.MaterialHandle
	if h, ok := material.Resolve(resolver, texName, searchPaths, mountIdent); ok {
		matHandle = h
	}

	ebs, hasEyeball := eyeMap[meshDesc.Material]
	if !hasEyeball || len(ebs) == 0 {
		return matHandle, nil, nil
	}

	eb := ebs[0]
	em := material.EyeMaterial(matHandle, material.EyeballSource{
		Origin:    eb.Origin,
		Forward:   eb.Forward,
		Up:        eb.Up,
		Radius:    eb.Radius,
		IrisScale: eb.IrisScale,
	})
	return matHandle, &em, nil
}

// decodePhysics implements spec §4.4: decode every solid's collision
// hulls, parse the trailing ragdoll KeyValues, emit bodies, and resolve
// each constraint into a fixed/hinge/ball joint. Every failure here is
// non-fatal (spec §7): a malformed PHY buffer contributes no bodies at all.
func decodePhysics(sink Sink, phyBuf []byte, skel skeleton.Result, cfg config, log *zap.SugaredLogger) {
	hdr, err := phy.ReadFileHeader(phyBuf)
	if err != nil {
		log.Warnw("malformed phy file header, skipping physics", "error", err.Error())
		return
	}

	blobs, kvOffset, err := phy.SolidBlobs(phyBuf, int(hdr.SolidCount))
	if err != nil {
		log.Warnw("malformed phy solid blobs, skipping physics", "error", err.Error())
		return
	}

	solidInfos, constraints, err := physics.ParseRagdoll(phyBuf[kvOffset:])
	if err != nil {
		log.Warnw("malformed phy ragdoll keyvalues, skipping physics", "error", err.Error())
		return
	}

	solids := physics.DecodeSolids(blobs, solidInfos, cfg.ivpScale)

	nameByIndex := make(map[int]string, len(solidInfos))
	for _, si := range solidInfos {
		nameByIndex[si.Index] = si.Name
	}
	boneNameFor := func(solidIndex int) string { return nameByIndex[solidIndex] }

	bodyBySolid := physics.EmitBodies(sink, solids, boneNameFor)

	for _, c := range constraints {
		parentBody, okP := bodyBySolid[c.Parent]
		childBody, okC := bodyBySolid[c.Child]
		if !okP || !okC || parentBody == childBody {
			log.Warnw("ragdoll constraint references unresolved or identical bodies, skipping",
				"parent_solid", c.Parent, "child_solid", c.Child)
			continue
		}

		parentName, childName := nameByIndex[c.Parent], nameByIndex[c.Child]
		parentWorld, hasParent := skel.WorldByName[parentName]
		childWorld, hasChild := skel.WorldByName[childName]
		haveBones := parentName != "" && childName != "" && hasParent && hasChild
		frame1, frame2 := physics.JointFrames(parentWorld, childWorld, haveBones)

		emitted := physics.Emit(c, cfg.hingeThresholdDegrees)
		switch emitted.Kind {
		case model.JointFixed:
			sink.AddFixedJoint(int(parentBody), int(childBody), frame1, frame2)
		case model.JointHinge:
			sink.AddHingeJoint(int(parentBody), int(childBody), frame1, frame2, emitted.TwistMin, emitted.TwistMax)
		case model.JointBall:
			sink.AddBallJoint(int(parentBody), int(childBody), frame1, frame2, emitted.SwingLimit, emitted.TwistMin, emitted.TwistMax)
		}
	}
}

// decodeAnimations implements spec §4.5: decode the main model's sequences,
// then each include model's sequences with their bones remapped by name
// into the main skeleton (spec §4.5 "Include models").
func decodeAnimations(sink Sink, mdlR *mdl.Reader, aniBuf []byte, resolver Resolver, skel skeleton.Result, log *zap.SugaredLogger) {
	destBoneCount := mdlR.NumBones()
	basePose := buildBasePose(mdlR)

	anims, err := anim.Decode(mdlR, aniBuf, basePose, destBoneCount, nil)
	if err != nil {
		log.Warnw("main model animation decode failed", "error", err.Error())
	}
	for _, a := range anims {
		sink.AddAnimation(a)
	}

	if resolver == nil {
		return
	}

	nameIndexLower := make(map[string]int, len(skel.IndexByName))
	for name, idx := range skel.IndexByName {
		nameIndexLower[strings.ToLower(name)] = idx
	}

	for i := 0; i < mdlR.NumIncludeModels(); i++ {
		path, err := mdlR.IncludeModelPath(i)
		if err != nil {
			log.Warnw("include model path read failed, skipping", "index", i, "error", err.Error())
			continue
		}

		buf, ok := resolver.Read(path)
		if !ok {
			log.Warnw("include model not found, skipping", "path", path)
			continue
		}
		incMdlR, err := mdl.New(buf)
		if err != nil {
			log.Warnw("include model invalid, skipping", "path", path, "error", err.Error())
			continue
		}

		var incAni []byte
		if ap := aniSiblingPath(path); resolver.Exists(ap) {
			if b, ok := resolver.Read(ap); ok {
				incAni = b
			}
		}

		incBoneCount := incMdlR.NumBones()
		remap := make([]int, incBoneCount)
		for bi := 0; bi < incBoneCount; bi++ {
			b, err := incMdlR.Bone(bi)
			if err != nil {
				remap[bi] = -1
				continue
			}
			if idx, ok := nameIndexLower[strings.ToLower(b.Name)]; ok {
				remap[bi] = idx
			} else {
				remap[bi] = -1
			}
		}

		incBasePose := buildBasePose(incMdlR)
		incAnims, err := anim.Decode(incMdlR, incAni, incBasePose, destBoneCount, remap)
		if err != nil {
			log.Warnw("include model animation decode failed", "path", path, "error", err.Error())
			continue
		}
		for _, a := range incAnims {
			sink.AddAnimation(a)
		}
	}
}

func buildBasePose(r *mdl.Reader) []anim.BasePose {
	out := make([]anim.BasePose, r.NumBones())
	for i := range out {
		b, err := r.Bone(i)
		if err != nil {
			continue
		}
		out[i] = anim.BasePose{
			Position: b.Local.Position,
			Rotation: b.Local.Rotation,
			Euler:    b.Euler,
			PosScale: b.PositionScale,
			RotScale: b.RotationScale,
		}
	}
	return out
}

// aniSiblingPath derives the companion .ani path for an .mdl path, matching
// the real tool's sibling-file convention (spec §4.1 "ANI").
func aniSiblingPath(mdlPath string) string {
	lower := strings.ToLower(mdlPath)
	if strings.HasSuffix(lower, ".mdl") {
		return mdlPath[:len(mdlPath)-4] + ".ani"
	}
	return mdlPath + ".ani"
}

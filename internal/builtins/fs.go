package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Filesystem helpers over C stdio. Every fallible helper returns the ordinary { err: i32, ... } struct and
// raises ErrIO / ErrFS members through it.

// seekEnd and seekSet are C's SEEK_END and SEEK_SET.
const (
	seekSet = 0
	seekEnd = 2
)

// openFile emits the shared fopen preamble into b: a NUL-terminated copy of path is made, opened under
// mode, and the copy freed. Returns the FILE pointer.
func (r *Registry) openFile(b *llir.Block, path llir.Value, mode string) llir.Value {
	cpath := b.CreateCall(r.GetCStr(), path)
	fp := b.CreateCall(r.Fopen(), cpath, r.cstr(b, mode))
	b.CreateCall(r.Free(), cpath)
	return fp
}

// isNull emits a null test of a pointer value.
func isNull(b *llir.Block, ptr llir.Value) llir.Value {
	return b.CreateCmp(llir.Eq, b.CreateCast(llir.PtrToInt, ptr, lt.U64), b.CreateConstIntV(lt.U64, 0))
}

// ReadFile emits read_file(path): opens binary, seeks to the end to measure length, rewinds, reads into a
// fresh str. A missing file raises ErrIO.NotFound; a short read raises ErrIO.UnexpectedEOF.
func (r *Registry) ReadFile() *llir.Function {
	if f, ok := r.cached("read_file"); ok {
		return f
	}
	rs := r.RetStruct(r.StrPtr())
	f := r.define("read_file", rs, p("path", r.StrPtr()))
	entry := f.CreateBlock("entry")
	notFound := f.CreateBlock("notfound")
	measure := f.CreateBlock("measure")
	short := f.CreateBlock("short")
	done := f.CreateBlock("done")

	fp := r.openFile(entry, f.Params()[0], "rb")
	entry.CreateCondBr(isNull(entry, fp), notFound, measure)
	notFound.CreateRet(retErr(notFound, rs, ErrIO, "NotFound"))

	measure.CreateCall(r.Fseek(), fp, measure.CreateConstIntV(lt.I64, 0), measure.CreateConstIntV(lt.I32, seekEnd))
	size := measure.CreateCall(r.Ftell(), fp)
	measure.CreateCall(r.Fseek(), fp, measure.CreateConstIntV(lt.I64, 0), measure.CreateConstIntV(lt.I32, seekSet))
	usize := measure.CreateCast(llir.Bitcast, size, lt.U64)
	s := measure.CreateCall(r.CreateStr(), usize)
	n := measure.CreateCall(r.Fread(), strData(measure, s), measure.CreateConstIntV(lt.U64, 1), usize, fp)
	measure.CreateCall(r.Fclose(), fp)
	measure.CreateCondBr(measure.CreateCmp(llir.Ne, n, usize), short, done)

	short.CreateCall(r.FreeStr(), s)
	short.CreateRet(retErr(short, rs, ErrIO, "UnexpectedEOF"))
	done.CreateRet(retOk(done, rs, s))
	return f
}

// ReadFileLines emits read_file_lines(path): reads the whole file, counts lines in one pass over the
// bytes, allocates an array of str pointers, then splits in a second pass stripping each trailing newline.
// Returns { err, lines: str**, count: u64 }.
func (r *Registry) ReadFileLines() *llir.Function {
	if f, ok := r.cached("read_file_lines"); ok {
		return f
	}
	linesPtr := lt.PointerTo(r.StrPtr())
	rs := r.RetStruct(linesPtr, lt.U64)
	f := r.define("read_file_lines", rs, p("path", r.StrPtr()))
	entry := f.CreateBlock("entry")
	fail := f.CreateBlock("fail")
	countCond := f.CreateBlock("count.cond")
	countBody := f.CreateBlock("count.body")
	countNL := f.CreateBlock("count.nl")
	countNext := f.CreateBlock("count.next")
	alloc := f.CreateBlock("alloc")
	splitCond := f.CreateBlock("split.cond")
	splitBody := f.CreateBlock("split.body")
	splitNL := f.CreateBlock("split.nl")
	splitNext := f.CreateBlock("split.next")
	splitTail := f.CreateBlock("split.tail")
	emitTail := f.CreateBlock("split.tail.emit")
	done := f.CreateBlock("done")

	contentSlot := entry.CreateAlloca("content", r.StrPtr())
	iSlot := entry.CreateAlloca("i", lt.U64)
	countSlot := entry.CreateAlloca("count", lt.U64)
	startSlot := entry.CreateAlloca("start", lt.U64)
	outSlot := entry.CreateAlloca("out", lt.U64)
	arrSlot := entry.CreateAlloca("arr", linesPtr)

	res := entry.CreateCall(r.ReadFile(), f.Params()[0])
	resSlot := entry.CreateAlloca("res", r.RetStruct(r.StrPtr()))
	entry.CreateStore(res, resSlot)
	errv := entry.CreateLoad(entry.CreateGEP(resSlot, 0))
	entry.CreateCondBr(entry.CreateCmp(llir.Ne, errv, entry.CreateConstIntV(lt.I32, 0)), fail, countCond)
	failSlot := fail.CreateAlloca("failret", rs)
	fail.CreateStore(fail.CreateLoad(fail.CreateGEP(resSlot, 0)), fail.CreateGEP(failSlot, 0))
	fail.CreateStore(nullPtr(fail, linesPtr), fail.CreateGEP(failSlot, 1))
	fail.CreateStore(fail.CreateConstIntV(lt.U64, 0), fail.CreateGEP(failSlot, 2))
	fail.CreateRet(fail.CreateLoad(failSlot))

	countCond.CreateStore(countCond.CreateLoad(countCond.CreateGEP(resSlot, 1)), contentSlot)
	countCond.CreateStore(countCond.CreateConstIntV(lt.U64, 0), iSlot)
	countCond.CreateStore(countCond.CreateConstIntV(lt.U64, 0), countSlot)
	countCond.CreateBr(countBody)

	// First pass: count newline-terminated lines plus a final unterminated tail.
	content := countBody.CreateLoad(contentSlot)
	iv := countBody.CreateLoad(iSlot)
	inBounds := countBody.CreateCmp(llir.Lt, iv, strLen(countBody, content))
	countBody.CreateCondBr(inBounds, countNL, alloc)
	ch := countNL.CreateLoad(bytePtrAt(countNL, strData(countNL, content), countNL.CreateLoad(iSlot)))
	isNL := countNL.CreateCmp(llir.Eq, ch, countNL.CreateConstIntV(lt.U8, '\n'))
	bump := f.CreateBlock("count.bump")
	countNL.CreateCondBr(isNL, bump, countNext)
	bump.CreateStore(bump.CreateBinOp(llir.Add,
		bump.CreateLoad(countSlot), bump.CreateConstIntV(lt.U64, 1)), countSlot)
	bump.CreateBr(countNext)
	countNext.CreateStore(countNext.CreateBinOp(llir.Add,
		countNext.CreateLoad(iSlot), countNext.CreateConstIntV(lt.U64, 1)), iSlot)
	countNext.CreateBr(countBody)

	// A trailing run of bytes with no newline is one more line.
	ac := alloc.CreateLoad(contentSlot)
	alen := strLen(alloc, ac)
	tailCheck := f.CreateBlock("count.tail")
	allocArr := f.CreateBlock("alloc.arr")
	alloc.CreateCondBr(alloc.CreateCmp(llir.Gt, alen, alloc.CreateConstIntV(lt.U64, 0)), tailCheck, allocArr)
	lastCh := tailCheck.CreateLoad(bytePtrAt(tailCheck, strData(tailCheck, ac),
		tailCheck.CreateBinOp(llir.Sub, alen, tailCheck.CreateConstIntV(lt.U64, 1))))
	tailBump := f.CreateBlock("count.tail.bump")
	tailCheck.CreateCondBr(
		tailCheck.CreateCmp(llir.Ne, lastCh, tailCheck.CreateConstIntV(lt.U8, '\n')), tailBump, allocArr)
	tailBump.CreateStore(tailBump.CreateBinOp(llir.Add,
		tailBump.CreateLoad(countSlot), tailBump.CreateConstIntV(lt.U64, 1)), countSlot)
	tailBump.CreateBr(allocArr)

	count := allocArr.CreateLoad(countSlot)
	bytes := allocArr.CreateBinOp(llir.Mul, count, allocArr.CreateConstIntV(lt.U64, 8))
	raw := allocArr.CreateCall(r.Malloc(), bytes)
	allocArr.CreateStore(allocArr.CreateCast(llir.Bitcast, raw, linesPtr), arrSlot)
	allocArr.CreateStore(allocArr.CreateConstIntV(lt.U64, 0), iSlot)
	allocArr.CreateStore(allocArr.CreateConstIntV(lt.U64, 0), startSlot)
	allocArr.CreateStore(allocArr.CreateConstIntV(lt.U64, 0), outSlot)
	allocArr.CreateBr(splitCond)

	// Second pass: slice out each line, newline excluded.
	sc := splitCond.CreateLoad(contentSlot)
	siv := splitCond.CreateLoad(iSlot)
	splitCond.CreateCondBr(splitCond.CreateCmp(llir.Lt, siv, strLen(splitCond, sc)), splitBody, splitTail)
	sch := splitBody.CreateLoad(bytePtrAt(splitBody, strData(splitBody, sc), splitBody.CreateLoad(iSlot)))
	splitBody.CreateCondBr(
		splitBody.CreateCmp(llir.Eq, sch, splitBody.CreateConstIntV(lt.U8, '\n')), splitNL, splitNext)

	snc := splitNL.CreateLoad(contentSlot)
	start := splitNL.CreateLoad(startSlot)
	lineLen := splitNL.CreateBinOp(llir.Sub, splitNL.CreateLoad(iSlot), start)
	line := splitNL.CreateCall(r.InitStr(), bytePtrAt(splitNL, strData(splitNL, snc), start), lineLen)
	outIdx := splitNL.CreateLoad(outSlot)
	slotAddr := bytePtrAt(splitNL, splitNL.CreateCast(llir.Bitcast, splitNL.CreateLoad(arrSlot), bytePtr),
		splitNL.CreateBinOp(llir.Mul, outIdx, splitNL.CreateConstIntV(lt.U64, 8)))
	splitNL.CreateStore(line, splitNL.CreateCast(llir.Bitcast, slotAddr, lt.PointerTo(r.StrPtr())))
	splitNL.CreateStore(splitNL.CreateBinOp(llir.Add, outIdx, splitNL.CreateConstIntV(lt.U64, 1)), outSlot)
	splitNL.CreateStore(splitNL.CreateBinOp(llir.Add,
		splitNL.CreateLoad(iSlot), splitNL.CreateConstIntV(lt.U64, 1)), startSlot)
	splitNL.CreateBr(splitNext)

	splitNext.CreateStore(splitNext.CreateBinOp(llir.Add,
		splitNext.CreateLoad(iSlot), splitNext.CreateConstIntV(lt.U64, 1)), iSlot)
	splitNext.CreateBr(splitCond)

	tc := splitTail.CreateLoad(contentSlot)
	tstart := splitTail.CreateLoad(startSlot)
	splitTail.CreateCondBr(
		splitTail.CreateCmp(llir.Lt, tstart, strLen(splitTail, tc)), emitTail, done)
	tlen := emitTail.CreateBinOp(llir.Sub, strLen(emitTail, tc), tstart)
	tline := emitTail.CreateCall(r.InitStr(), bytePtrAt(emitTail, strData(emitTail, tc), tstart), tlen)
	toutIdx := emitTail.CreateLoad(outSlot)
	tslotAddr := bytePtrAt(emitTail, emitTail.CreateCast(llir.Bitcast, emitTail.CreateLoad(arrSlot), bytePtr),
		emitTail.CreateBinOp(llir.Mul, toutIdx, emitTail.CreateConstIntV(lt.U64, 8)))
	emitTail.CreateStore(tline, emitTail.CreateCast(llir.Bitcast, tslotAddr, lt.PointerTo(r.StrPtr())))
	emitTail.CreateBr(done)

	done.CreateCall(r.FreeStr(), done.CreateLoad(contentSlot))
	done.CreateRet(retOk(done, rs, done.CreateLoad(arrSlot), done.CreateLoad(countSlot)))
	return f
}

// writeFileMode emits the shared body of write_file / append_file under the given fopen mode.
func (r *Registry) writeFileMode(name, mode string) *llir.Function {
	if f, ok := r.cached(name); ok {
		return f
	}
	rs := r.RetStruct()
	f := r.define(name, rs, p("path", r.StrPtr()), p("content", r.StrPtr()))
	entry := f.CreateBlock("entry")
	badPath := f.CreateBlock("badpath")
	write := f.CreateBlock("write")
	mismatch := f.CreateBlock("mismatch")
	done := f.CreateBlock("done")

	fp := r.openFile(entry, f.Params()[0], mode)
	entry.CreateCondBr(isNull(entry, fp), badPath, write)
	badPath.CreateRet(retErr(badPath, rs, ErrFS, "InvalidPath"))

	content := f.Params()[1]
	ln := strLen(write, content)
	n := write.CreateCall(r.Fwrite(), strData(write, content), write.CreateConstIntV(lt.U64, 1), ln, fp)
	write.CreateCall(r.Fclose(), fp)
	write.CreateCondBr(write.CreateCmp(llir.Ne, n, ln), mismatch, done)
	mismatch.CreateRet(retErr(mismatch, rs, ErrIO, "NotWritable"))
	done.CreateRet(retOk(done, rs))
	return f
}

// WriteFile emits write_file(path, content): truncating binary write.
func (r *Registry) WriteFile() *llir.Function {
	return r.writeFileMode("write_file", "wb")
}

// AppendFile emits append_file(path, content): appending binary write.
func (r *Registry) AppendFile() *llir.Function {
	return r.writeFileMode("append_file", "ab")
}

// FileExists emits file_exists(path): whether an open-for-read succeeds.
func (r *Registry) FileExists() *llir.Function {
	if f, ok := r.cached("file_exists"); ok {
		return f
	}
	f := r.define("file_exists", lt.I1, p("path", r.StrPtr()))
	entry := f.CreateBlock("entry")
	no := f.CreateBlock("no")
	yes := f.CreateBlock("yes")
	fp := r.openFile(entry, f.Params()[0], "rb")
	entry.CreateCondBr(isNull(entry, fp), no, yes)
	no.CreateRet(no.CreateConstIntV(lt.I1, 0))
	yes.CreateCall(r.Fclose(), fp)
	yes.CreateRet(yes.CreateConstIntV(lt.I1, 1))
	return f
}

// IsFile emits is_file(path): open-for-read plus a seek to confirm the handle is readable.
func (r *Registry) IsFile() *llir.Function {
	if f, ok := r.cached("is_file"); ok {
		return f
	}
	f := r.define("is_file", lt.I1, p("path", r.StrPtr()))
	entry := f.CreateBlock("entry")
	no := f.CreateBlock("no")
	probe := f.CreateBlock("probe")
	bad := f.CreateBlock("bad")
	good := f.CreateBlock("good")
	fp := r.openFile(entry, f.Params()[0], "rb")
	entry.CreateCondBr(isNull(entry, fp), no, probe)
	no.CreateRet(no.CreateConstIntV(lt.I1, 0))
	rc := probe.CreateCall(r.Fseek(), fp, probe.CreateConstIntV(lt.I64, 0), probe.CreateConstIntV(lt.I32, seekEnd))
	probe.CreateCall(r.Fclose(), fp)
	probe.CreateCondBr(probe.CreateCmp(llir.Ne, rc, probe.CreateConstIntV(lt.I32, 0)), bad, good)
	bad.CreateRet(bad.CreateConstIntV(lt.I1, 0))
	good.CreateRet(good.CreateConstIntV(lt.I1, 1))
	return f
}
